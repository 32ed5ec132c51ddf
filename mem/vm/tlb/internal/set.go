// Package internal provides the definition required for defining TLB.
package internal

import (
	"container/list"
)

// An Entry maps a page to the frame that holds it.
type Entry struct {
	PageNumber  uint64
	FrameNumber uint64
}

// A Set holds a certain number of entries ordered by recency. Lookup, Update,
// Evict and Visit are the operations which we can perform on a set.
type Set interface {
	Lookup(page uint64) (entry Entry, found bool)
	Update(entry Entry)
	Add(entry Entry)
	Evict() (entry Entry, ok bool)
	Visit(page uint64)
	Len() int
	Entries() []Entry
	Reset()
}

// NewSet creates a new TLB set.
func NewSet() Set {
	return &setImpl{
		visitList: list.New(),
		pageMap:   make(map[uint64]*list.Element),
	}
}

// setImpl keeps the most recently used entry at the front of visitList.
// pageMap points at the element of each page so every operation is O(1).
type setImpl struct {
	visitList *list.List
	pageMap   map[uint64]*list.Element
}

func (s *setImpl) Lookup(page uint64) (Entry, bool) {
	elem, found := s.pageMap[page]
	if !found {
		return Entry{}, false
	}

	return elem.Value.(Entry), true
}

// Update changes the frame of an existing entry without changing its
// position.
func (s *setImpl) Update(entry Entry) {
	elem := s.entryMustExist(entry.PageNumber)
	elem.Value = entry
}

// Add puts a new entry at the most recently used position.
func (s *setImpl) Add(entry Entry) {
	s.entryMustNotExist(entry.PageNumber)

	elem := s.visitList.PushFront(entry)
	s.pageMap[entry.PageNumber] = elem
}

// Evict removes the least recently used entry.
func (s *setImpl) Evict() (Entry, bool) {
	elem := s.visitList.Back()
	if elem == nil {
		return Entry{}, false
	}

	entry := s.visitList.Remove(elem).(Entry)
	delete(s.pageMap, entry.PageNumber)

	return entry, true
}

// Visit moves an entry to the most recently used position.
func (s *setImpl) Visit(page uint64) {
	elem := s.entryMustExist(page)
	s.visitList.MoveToFront(elem)
}

func (s *setImpl) Len() int {
	return s.visitList.Len()
}

// Entries lists the entries from the most to the least recently used.
func (s *setImpl) Entries() []Entry {
	entries := make([]Entry, 0, s.visitList.Len())
	for elem := s.visitList.Front(); elem != nil; elem = elem.Next() {
		entries = append(entries, elem.Value.(Entry))
	}

	return entries
}

func (s *setImpl) Reset() {
	s.visitList.Init()
	s.pageMap = make(map[uint64]*list.Element)
}

func (s *setImpl) entryMustExist(page uint64) *list.Element {
	elem, found := s.pageMap[page]
	if !found {
		panic("entry does not exist")
	}

	return elem
}

func (s *setImpl) entryMustNotExist(page uint64) {
	_, found := s.pageMap[page]
	if found {
		panic("entry exist")
	}
}
