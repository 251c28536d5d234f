package fbdp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionDataHasCreditNilVsZeroVsPositive(t *testing.T) {
	d := &SessionData{}
	assert.False(t, d.HasCredit())

	d.SetTransmit(0)
	assert.False(t, d.HasCredit())

	d.SetTransmit(3)
	assert.True(t, d.HasCredit())
}

func TestSessionDataConsumeCreditIsNoOpWhenNilOrZero(t *testing.T) {
	d := &SessionData{}
	d.ConsumeCredit()
	assert.Nil(t, d.Transmit)

	d.SetTransmit(0)
	d.ConsumeCredit()
	assert.Equal(t, 0, *d.Transmit)

	d.SetTransmit(2)
	d.ConsumeCredit()
	assert.Equal(t, 1, *d.Transmit)
}

func TestDataOfNilSessionOrData(t *testing.T) {
	assert.Nil(t, dataOf(nil))
}
