// Package clock define el reloj inyectable que produce la fecha local.
// Nada en el dominio lee time.Now() directo para "hoy".
package clock

import (
	"sync"
	"time"
)

const DateLayout = "2006-01-02"

type Clock interface {
	Now() time.Time
	// Today es la fecha calendario local en formato YYYY-MM-DD.
	Today() string
}

// Local usa el reloj de pared en la zona horaria del lector.
type Local struct {
	loc *time.Location
}

func NewLocal(loc *time.Location) *Local {
	if loc == nil {
		loc = time.Local
	}
	return &Local{loc: loc}
}

// NewLocalFromName acepta un nombre IANA ("America/Lima"). Vacío => time.Local.
func NewLocalFromName(name string) (*Local, error) {
	if name == "" {
		return NewLocal(time.Local), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, err
	}
	return NewLocal(loc), nil
}

func (c *Local) Now() time.Time { return time.Now().In(c.loc) }

func (c *Local) Today() string { return c.Now().Format(DateLayout) }

func (c *Local) Location() *time.Location { return c.loc }

// Fixed es un reloj manual para tests.
type Fixed struct {
	mu  sync.Mutex
	now time.Time
}

func NewFixed(t time.Time) *Fixed { return &Fixed{now: t} }

func (c *Fixed) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Fixed) Today() string { return c.Now().Format(DateLayout) }

func (c *Fixed) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func (c *Fixed) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
