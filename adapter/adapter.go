// Package adapter drives a list view from a buffer.Buffer.
package adapter

import (
	"github.com/samthor/listbuf/buffer"
	"github.com/samthor/listbuf/diff"
)

// IndexPath locates a row within a sectioned view.
type IndexPath struct {
	Section int `json:"section"`
	Row     int `json:"row"`
}

// View is the part of a list or grid view that an Adapter drives.
type View interface {
	BeginUpdates()
	InsertRows(paths []IndexPath)
	DeleteRows(paths []IndexPath)
	MoveRow(from, to IndexPath)
	EndUpdates()
	ReloadData()
	ReloadRows(paths []IndexPath)
}

// Adapter forwards a Buffer's changes to a single section of a View.
// Views with many sections can use one Adapter per section.
type Adapter[T diff.Diffable] struct {
	buffer  *buffer.Buffer[T]
	view    View
	section int
}

// New builds an Adapter and installs it as the Buffer's delegate.
// It must be called on the Buffer's owner.
func New[T diff.Diffable](b *buffer.Buffer[T], view View, section int) *Adapter[T] {
	a := &Adapter[T]{buffer: b, view: view, section: section}
	b.SetDelegate(a)
	return a
}

// Section returns the section this Adapter drives.
func (a *Adapter[T]) Section() int {
	return a.section
}

// Displayed returns the published element at the given row.
func (a *Adapter[T]) Displayed(row int) T {
	return a.buffer.At(row)
}

// Count returns the number of published rows.
func (a *Adapter[T]) Count() int {
	return a.buffer.Len()
}

// Update passes through to buffer.Buffer.Update.
func (a *Adapter[T]) Update(values []T, synchronous bool, done func()) {
	a.buffer.Update(values, synchronous, done)
}

func (a *Adapter[T]) paths(indices []uint) (out []IndexPath) {
	out = make([]IndexPath, len(indices))
	for i, index := range indices {
		out[i] = IndexPath{Section: a.section, Row: int(index)}
	}
	return out
}

func (a *Adapter[T]) WillChangeContent() {
	a.view.BeginUpdates()
}

func (a *Adapter[T]) DidInsert(indices []uint) {
	a.view.InsertRows(a.paths(indices))
}

func (a *Adapter[T]) DidDelete(indices []uint) {
	a.view.DeleteRows(a.paths(indices))
}

func (a *Adapter[T]) DidMove(from, to uint) {
	a.view.MoveRow(IndexPath{Section: a.section, Row: int(from)}, IndexPath{Section: a.section, Row: int(to)})
}

func (a *Adapter[T]) DidChangeContent() {
	a.view.EndUpdates()
}

func (a *Adapter[T]) DidChangeAllContent() {
	a.view.ReloadData()
}

func (a *Adapter[T]) DidChangeElement(index uint) {
	a.view.ReloadRows(a.paths([]uint{index}))
}
