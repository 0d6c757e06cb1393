package device

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrPortClosed is returned by a FakePort after Close.
var ErrPortClosed = errors.New("port closed")

// FakePort replays scripted chunks. When the script is exhausted it behaves
// like an idle line: each Read sleeps for the poll interval and times out.
type FakePort struct {
	mu     sync.Mutex
	chunks [][]byte
	errs   []error
	poll   time.Duration
	closed bool
}

// NewFakePort returns a port that yields chunks in order.
func NewFakePort(chunks ...string) *FakePort {
	p := &FakePort{poll: 5 * time.Millisecond}
	for _, c := range chunks {
		p.chunks = append(p.chunks, []byte(c))
		p.errs = append(p.errs, nil)
	}
	return p
}

// FailWith appends a read error after the scripted chunks.
func (p *FakePort) FailWith(err error) *FakePort {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chunks = append(p.chunks, nil)
	p.errs = append(p.errs, err)
	return p
}

// Push appends a chunk while the port is in use.
func (p *FakePort) Push(chunk string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chunks = append(p.chunks, []byte(chunk))
	p.errs = append(p.errs, nil)
}

func (p *FakePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, ErrPortClosed
	}
	if len(p.chunks) == 0 {
		p.mu.Unlock()
		time.Sleep(p.poll)
		return 0, nil
	}
	chunk, err := p.chunks[0], p.errs[0]
	p.chunks, p.errs = p.chunks[1:], p.errs[1:]
	p.mu.Unlock()

	if err != nil {
		return 0, err
	}
	return copy(b, chunk), nil
}

func (p *FakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Closed reports whether Close was called.
func (p *FakePort) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// FakeOpener hands out scripted ports per device name. A name with no
// remaining ports fails to open.
type FakeOpener struct {
	mu      sync.Mutex
	Ports   []string
	scripts map[string][]*FakePort
	opens   map[string]int
}

var _ Opener = (*FakeOpener)(nil)

func NewFakeOpener(ports ...string) *FakeOpener {
	return &FakeOpener{
		Ports:   ports,
		scripts: make(map[string][]*FakePort),
		opens:   make(map[string]int),
	}
}

// Add queues a port to be returned by the next successful Open of name.
func (o *FakeOpener) Add(name string, p *FakePort) *FakeOpener {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.scripts[name] = append(o.scripts[name], p)
	return o
}

func (o *FakeOpener) List() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string{}, o.Ports...)
}

func (o *FakeOpener) Open(name string) (Port, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opens[name]++
	queue := o.scripts[name]
	if len(queue) == 0 {
		return nil, fmt.Errorf("open %s: no such device", name)
	}
	o.scripts[name] = queue[1:]
	return queue[0], nil
}

// Opens returns how many times name was opened, successful or not.
func (o *FakeOpener) Opens(name string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opens[name]
}
