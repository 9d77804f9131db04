package line

import (
	"fmt"

	"github.com/smtline/smtline/sim"
)

// An Item is what moves along the line: a single PCB or a stack of them.
type Item interface {
	ID() string

	// CreationTime returns the instant the item entered the line.
	CreationTime() sim.VTimeInSec

	// Count returns the number of PCBs in the item.
	Count() int

	// Type returns the PCB type, which selects processing parameters.
	Type() int
}

// A PCB is a printed circuit board.
type PCB struct {
	id        string
	TypeID    int
	SerialID  int
	createdAt sim.VTimeInSec
}

// NewPCB creates a PCB.
func NewPCB(id string, typeID, serialID int, createdAt sim.VTimeInSec) *PCB {
	return &PCB{
		id:        id,
		TypeID:    typeID,
		SerialID:  serialID,
		createdAt: createdAt,
	}
}

// ID returns the unique ID of the PCB.
func (p *PCB) ID() string {
	return p.id
}

// CreationTime returns when the PCB was created.
func (p *PCB) CreationTime() sim.VTimeInSec {
	return p.createdAt
}

// Count returns 1.
func (p *PCB) Count() int {
	return 1
}

// Type returns the type of the PCB.
func (p *PCB) Type() int {
	return p.TypeID
}

// NumComponents returns the number of components placed on the PCB.
func (p *PCB) NumComponents() int {
	return p.TypeID * 10
}

func (p *PCB) String() string {
	return fmt.Sprintf("PCB<type=%d,serial=%d>", p.TypeID, p.SerialID)
}

// A Stack is a tray of PCBs. PCBs are taken from the top.
type Stack struct {
	id        string
	pcbs      []*PCB
	createdAt sim.VTimeInSec
}

// NewStack creates a stack holding pcbs, the last one on top.
func NewStack(id string, pcbs []*PCB, createdAt sim.VTimeInSec) *Stack {
	return &Stack{
		id:        id,
		pcbs:      pcbs,
		createdAt: createdAt,
	}
}

// ID returns the unique ID of the stack.
func (s *Stack) ID() string {
	return s.id
}

// CreationTime returns when the stack was created.
func (s *Stack) CreationTime() sim.VTimeInSec {
	return s.createdAt
}

// Count returns the number of PCBs left on the stack.
func (s *Stack) Count() int {
	return len(s.pcbs)
}

// Type returns the type of the PCBs on the stack, or 0 if it is empty.
func (s *Stack) Type() int {
	if len(s.pcbs) == 0 {
		return 0
	}

	return s.pcbs[0].TypeID
}

// PCBs returns the PCBs on the stack, bottom first.
func (s *Stack) PCBs() []*PCB {
	return append([]*PCB(nil), s.pcbs...)
}

// Pop removes the PCB on top of the stack.
func (s *Stack) Pop() (*PCB, bool) {
	if len(s.pcbs) == 0 {
		return nil, false
	}

	top := s.pcbs[len(s.pcbs)-1]
	s.pcbs = s.pcbs[:len(s.pcbs)-1]

	return top, true
}

func (s *Stack) String() string {
	return fmt.Sprintf("Stack<%d PCBs>", len(s.pcbs))
}

// ProcessingTimeFunc tells how long a machine works on an item.
type ProcessingTimeFunc func(item Item) sim.VTimeInSec

// AmountFunc tells how much of a consumable an item needs.
type AmountFunc func(item Item) float64

// FixedTime returns a ProcessingTimeFunc that always takes d.
func FixedTime(d sim.VTimeInSec) ProcessingTimeFunc {
	return func(Item) sim.VTimeInSec { return d }
}

// TimePerComponent returns a ProcessingTimeFunc that takes d per component
// placed on each PCB of the item.
func TimePerComponent(d sim.VTimeInSec) ProcessingTimeFunc {
	return func(item Item) sim.VTimeInSec {
		return d * sim.VTimeInSec(item.Type()*10*item.Count())
	}
}

// FixedAmount returns an AmountFunc that always needs a.
func FixedAmount(a float64) AmountFunc {
	return func(Item) float64 { return a }
}

// AmountPerType returns an AmountFunc that needs k units per type number of
// each PCB, so that a type 2 PCB needs twice what a type 1 PCB needs.
func AmountPerType(k float64) AmountFunc {
	return func(item Item) float64 {
		return k * float64(item.Type()*item.Count())
	}
}
