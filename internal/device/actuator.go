package device

import (
	"context"

	"github.com/dmitrijs2005/doorlock/internal/backend/controller"
	"github.com/dmitrijs2005/doorlock/internal/logging"
)

// Motor stands in for the lock motor driver and logs each drive change.
type Motor struct {
	logger logging.Logger
	dir    controller.Direction
}

func NewMotor(l logging.Logger) *Motor {
	return &Motor{logger: l.With("module", "motor")}
}

func (m *Motor) SetMotor(d controller.Direction) {
	if d == m.dir {
		return
	}
	m.logger.Info(context.Background(), "motor", "from", m.dir.String(), "to", d.String())
	m.dir = d
}

func (m *Motor) Direction() controller.Direction { return m.dir }

// Buzzer stands in for the alert buzzer.
type Buzzer struct {
	logger logging.Logger
	on     bool
}

func NewBuzzer(l logging.Logger) *Buzzer {
	return &Buzzer{logger: l.With("module", "buzzer")}
}

func (b *Buzzer) SetBuzzer(on bool) {
	if on == b.on {
		return
	}
	b.on = on
	if on {
		b.logger.Warn(context.Background(), "buzzer on")
		return
	}
	b.logger.Info(context.Background(), "buzzer off")
}

func (b *Buzzer) On() bool { return b.on }
