package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kalambet/redpersona/internal/workflow"
)

type snapshotMsg workflow.Snapshot

type exportMsg workflow.ExportResult

// bridge carries controller notifications into the bubbletea event loop. Only the
// latest snapshot is kept: each one is complete, so intermediate ones can be skipped.
type bridge struct {
	mu      sync.Mutex
	latest  *workflow.Snapshot
	wake    chan struct{}
	exports chan workflow.ExportResult
	done    chan struct{}
	once    sync.Once
}

func newBridge() *bridge {
	return &bridge{
		wake:    make(chan struct{}, 1),
		exports: make(chan workflow.ExportResult, 16),
		done:    make(chan struct{}),
	}
}

func (b *bridge) publish(s workflow.Snapshot) {
	b.mu.Lock()
	b.latest = &s
	b.mu.Unlock()
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

func (b *bridge) exported(r workflow.ExportResult) {
	select {
	case b.exports <- r:
	case <-b.done:
	}
}

// wait returns a command that blocks until the next notification.
func (b *bridge) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-b.wake:
			b.mu.Lock()
			s := *b.latest
			b.mu.Unlock()
			return snapshotMsg(s)
		case r := <-b.exports:
			return exportMsg(r)
		case <-b.done:
			return nil
		}
	}
}

func (b *bridge) close() {
	b.once.Do(func() { close(b.done) })
}
