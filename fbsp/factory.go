package fbsp

import "github.com/FirebirdSQL/saturnin-sub000/channel"

// parseMessage is the channel.Protocol.ParseMessage factory shared by
// Service, Client and EventClient: a fresh Message decoded from frames.
func parseMessage(ch *channel.Channel, frames [][]byte) (channel.Message, error) {
	msg := &Message{}
	if err := msg.FromFrames(ch, frames); err != nil {
		return nil, err
	}
	return msg, nil
}
