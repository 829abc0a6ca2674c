package controller

// Direction is the motor drive command.
type Direction int

const (
	Stop Direction = iota
	Forward
	Reverse
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Reverse:
		return "reverse"
	}
	return "stop"
}

// Motor drives the lock actuator.
type Motor interface {
	SetMotor(d Direction)
}

// Buzzer drives the audible lockout alert.
type Buzzer interface {
	SetBuzzer(on bool)
}

// DoorState is the phase of the actuation cycle.
type DoorState int

const (
	Idle DoorState = iota
	Opening
	Holding
	Closing
)

func (s DoorState) String() string {
	switch s {
	case Opening:
		return "opening"
	case Holding:
		return "holding"
	case Closing:
		return "closing"
	}
	return "idle"
}
