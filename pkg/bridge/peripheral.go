package bridge

// Interrupts receives completion events from a peripheral. The methods are
// called in interrupt context and must not block.
type Interrupts interface {
	OnReceiveHalfComplete()
	OnReceiveComplete()
	OnTransmitComplete()
}

// Peripheral is the driver of one wire-level device.
type Peripheral interface {
	// StartCircularReceive starts receiving into buf forever, wrapping at
	// the end. irq is notified when each half of buf is filled.
	StartCircularReceive(buf []byte, irq Interrupts) error
	// StartTransmit starts sending buf. irq.OnTransmitComplete is called
	// once it is done.
	StartTransmit(buf []byte) error
}

// FrameHandler is called when a side hands a frame to its peripheral.
type FrameHandler interface {
	HandleFrame(side string, f Frame)
}

// HandleFrameFunc is func type of FrameHandler.
type HandleFrameFunc func(side string, f Frame)

// HandleFrame implements FrameHandler.
func (f HandleFrameFunc) HandleFrame(side string, frame Frame) {
	f(side, frame)
}
