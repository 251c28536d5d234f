package iccp

import "fmt"

func errNotImplemented(op string) error {
	return fmt.Errorf("iccp: %s not implemented", op)
}

func errWrongMessage(detail string) error {
	return fmt.Errorf("iccp: wrong message: %s", detail)
}
