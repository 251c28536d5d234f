package wire

import (
	"github.com/FirebirdSQL/saturnin-sub000/types"
)

// AgentDataframe mirrors types.AgentDescriptor on the wire.
type AgentDataframe struct {
	UID            string
	Name           string
	Version        string
	VendorUID      string
	Classification string
	PlatformUID    string
	PlatformVer    string
}

func (a *AgentDataframe) Marshal() []byte {
	w := NewWriter()
	w.String(1, a.UID).String(2, a.Name).String(3, a.Version).
		String(4, a.VendorUID).String(5, a.Classification).
		String(6, a.PlatformUID).String(7, a.PlatformVer)
	return w.Bytes()
}

func (a *AgentDataframe) Unmarshal(b []byte) error {
	fields, err := ParseFields(b)
	if err != nil {
		return err
	}
	for _, f := range fields {
		switch f.Num {
		case 1:
			a.UID = f.String()
		case 2:
			a.Name = f.String()
		case 3:
			a.Version = f.String()
		case 4:
			a.VendorUID = f.String()
		case 5:
			a.Classification = f.String()
		case 6:
			a.PlatformUID = f.String()
		case 7:
			a.PlatformVer = f.String()
		}
	}
	return nil
}

func AgentToDataframe(a types.AgentDescriptor) *AgentDataframe {
	return &AgentDataframe{
		UID: a.UID, Name: a.Name, Version: a.Version, VendorUID: a.VendorUID,
		Classification: a.Classification, PlatformUID: a.PlatformUID, PlatformVer: a.PlatformVer,
	}
}

func (a *AgentDataframe) ToDescriptor() types.AgentDescriptor {
	return types.AgentDescriptor{
		UID: a.UID, Name: a.Name, Version: a.Version, VendorUID: a.VendorUID,
		Classification: a.Classification, PlatformUID: a.PlatformUID, PlatformVer: a.PlatformVer,
	}
}

// PeerDataframe mirrors types.PeerDescriptor on the wire (HELLO/WELCOME
// in FBSP, READY in ICCP).
type PeerDataframe struct {
	UID        string
	PID        int
	Host       string
	Supplement map[string]string
}

func PeerToDataframe(p types.PeerDescriptor) *PeerDataframe {
	return &PeerDataframe{UID: p.UID, PID: p.PID, Host: p.Host, Supplement: p.Supplement}
}

func (p *PeerDataframe) ToDescriptor() types.PeerDescriptor {
	return types.PeerDescriptor{UID: p.UID, PID: p.PID, Host: p.Host, Supplement: p.Supplement}
}

func (p *PeerDataframe) Marshal() []byte {
	w := NewWriter()
	w.String(1, p.UID).Int(2, p.PID).String(3, p.Host)
	for k, v := range p.Supplement {
		entry := NewWriter()
		entry.String(1, k).String(2, v)
		w.Message(4, entry.Bytes())
	}
	return w.Bytes()
}

func (p *PeerDataframe) Unmarshal(b []byte) error {
	fields, err := ParseFields(b)
	if err != nil {
		return err
	}
	p.Supplement = nil
	for _, f := range fields {
		switch f.Num {
		case 1:
			p.UID = f.String()
		case 2:
			p.PID = int(f.Varint)
		case 3:
			p.Host = f.String()
		case 4:
			inner, err := ParseFields(f.Value)
			if err != nil {
				return err
			}
			var key, val string
			for _, e := range inner {
				switch e.Num {
				case 1:
					key = e.String()
				case 2:
					val = e.String()
				}
			}
			if p.Supplement == nil {
				p.Supplement = make(map[string]string)
			}
			p.Supplement[key] = val
		}
	}
	return nil
}

// ServiceDataframe mirrors types.ServiceDescriptor on the wire (the
// service's cached WELCOME payload).
type ServiceDataframe struct {
	Agent            AgentDataframe
	APIInterfaces    []string
	Description      string
	Facilities       []string
	FactoryLocator   string
	ConfigFactoryURI string
}

func ServiceToDataframe(s types.ServiceDescriptor) *ServiceDataframe {
	return &ServiceDataframe{
		Agent:            *AgentToDataframe(s.Agent),
		APIInterfaces:    s.APIInterfaces,
		Description:      s.Description,
		Facilities:       s.Facilities,
		FactoryLocator:   s.FactoryLocator,
		ConfigFactoryURI: s.ConfigFactoryURI,
	}
}

func (s *ServiceDataframe) ToDescriptor() types.ServiceDescriptor {
	return types.ServiceDescriptor{
		Agent:            s.Agent.ToDescriptor(),
		APIInterfaces:    s.APIInterfaces,
		Description:      s.Description,
		Facilities:       s.Facilities,
		FactoryLocator:   s.FactoryLocator,
		ConfigFactoryURI: s.ConfigFactoryURI,
	}
}

func (s *ServiceDataframe) Marshal() []byte {
	w := NewWriter()
	w.Message(1, s.Agent.Marshal())
	for _, iface := range s.APIInterfaces {
		w.String(2, iface)
	}
	w.String(3, s.Description)
	for _, fac := range s.Facilities {
		w.String(4, fac)
	}
	w.String(5, s.FactoryLocator)
	w.String(6, s.ConfigFactoryURI)
	return w.Bytes()
}

func (s *ServiceDataframe) Unmarshal(b []byte) error {
	fields, err := ParseFields(b)
	if err != nil {
		return err
	}
	for _, f := range fields {
		switch f.Num {
		case 1:
			if err := s.Agent.Unmarshal(f.Value); err != nil {
				return err
			}
		case 2:
			s.APIInterfaces = append(s.APIInterfaces, f.String())
		case 3:
			s.Description = f.String()
		case 4:
			s.Facilities = append(s.Facilities, f.String())
		case 5:
			s.FactoryLocator = f.String()
		case 6:
			s.ConfigFactoryURI = f.String()
		}
	}
	return nil
}

// EndpointsDataframe mirrors types.EndpointsMap on the wire (ICCP READY's
// second frame).
type EndpointsDataframe struct {
	Entries types.EndpointsMap
}

func (e *EndpointsDataframe) Marshal() []byte {
	w := NewWriter()
	for name, addrs := range e.Entries {
		entry := NewWriter()
		entry.String(1, name)
		for _, a := range addrs {
			entry.String(2, a)
		}
		w.Message(1, entry.Bytes())
	}
	return w.Bytes()
}

func (e *EndpointsDataframe) Unmarshal(b []byte) error {
	fields, err := ParseFields(b)
	if err != nil {
		return err
	}
	e.Entries = make(types.EndpointsMap)
	for _, f := range fields {
		if f.Num != 1 {
			continue
		}
		inner, err := ParseFields(f.Value)
		if err != nil {
			return err
		}
		var name string
		var addrs []string
		for _, ie := range inner {
			switch ie.Num {
			case 1:
				name = ie.String()
			case 2:
				addrs = append(addrs, ie.String())
			}
		}
		e.Entries[name] = addrs
	}
	return nil
}

// OpenDataframe is the FBDP OPEN payload: pipe name, declared socket
// role, data format MIME string, and an optional free-form parameter
// struct (string-keyed, string-valued - matching the way saturnin's
// `dict2struct`/`struct2dict` helpers flatten pipe parameters).
type OpenDataframe struct {
	DataPipe   string
	PipeSocket int // types.PipeSocket
	DataFormat string
	Params     map[string]string
}

func (o *OpenDataframe) Marshal() []byte {
	w := NewWriter()
	w.String(1, o.DataPipe).Int(2, o.PipeSocket).String(3, o.DataFormat)
	for k, v := range o.Params {
		entry := NewWriter()
		entry.String(1, k).String(2, v)
		w.Message(4, entry.Bytes())
	}
	return w.Bytes()
}

func (o *OpenDataframe) Unmarshal(b []byte) error {
	fields, err := ParseFields(b)
	if err != nil {
		return err
	}
	o.Params = nil
	for _, f := range fields {
		switch f.Num {
		case 1:
			o.DataPipe = f.String()
		case 2:
			o.PipeSocket = int(f.Varint)
		case 3:
			o.DataFormat = f.String()
		case 4:
			inner, err := ParseFields(f.Value)
			if err != nil {
				return err
			}
			var key, val string
			for _, e := range inner {
				switch e.Num {
				case 1:
					key = e.String()
				case 2:
					val = e.String()
				}
			}
			if o.Params == nil {
				o.Params = make(map[string]string)
			}
			o.Params[key] = val
		}
	}
	return nil
}

// ErrorDescription is one error-description dataframe, carried on FBSP
// ERROR and FBDP CLOSE payloads - one per exception in the __cause__
// chain, per spec.md §4.5.
type ErrorDescription struct {
	Description string
	Code        int
	Annotation  string // e.g. a traceback/stack annotation
}

func (e *ErrorDescription) Marshal() []byte {
	w := NewWriter()
	w.String(1, e.Description).Int(2, e.Code).String(3, e.Annotation)
	return w.Bytes()
}

func (e *ErrorDescription) Unmarshal(b []byte) error {
	fields, err := ParseFields(b)
	if err != nil {
		return err
	}
	for _, f := range fields {
		switch f.Num {
		case 1:
			e.Description = f.String()
		case 2:
			e.Code = int(f.Varint)
		case 3:
			e.Annotation = f.String()
		}
	}
	return nil
}
