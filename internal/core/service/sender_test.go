package service

import (
	"context"
	"csbot/internal/core/domain"
	"strconv"
	"sync"
	"time"
)

type sent struct {
	Chat    domain.Chat
	Ref     domain.MessageRef
	Content domain.Content
}

// fakeSender records everything sent through it. It is safe for use from timer goroutines.
type fakeSender struct {
	mutex    sync.Mutex
	nextID   int
	sent     []sent
	edits    []sent
	attached []domain.MessageRef
	detached []domain.MessageRef

	sendErr error
	editErr error
	// accept, when set, rejects content the way a platform refuses oversized fields.
	accept func(domain.Content) error
	// editDelay slows every edit down, outside the lock, to widen races.
	editDelay time.Duration
}

func (f *fakeSender) SendMessage(_ context.Context, chat domain.Chat, content domain.Content) (domain.MessageRef, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if f.sendErr != nil {
		return domain.MessageRef{}, f.sendErr
	}
	if f.accept != nil {
		if err := f.accept(content); err != nil {
			return domain.MessageRef{}, err
		}
	}

	f.nextID++
	ref := domain.MessageRef{ChatID: chat.ID, MessageID: strconv.Itoa(f.nextID)}
	f.sent = append(f.sent, sent{Chat: chat, Ref: ref, Content: content})

	return ref, nil
}

func (f *fakeSender) EditMessage(_ context.Context, ref domain.MessageRef, content domain.Content) error {
	f.mutex.Lock()
	delay := f.editDelay
	f.mutex.Unlock()
	time.Sleep(delay)

	f.mutex.Lock()
	defer f.mutex.Unlock()

	if f.editErr != nil {
		return f.editErr
	}

	f.edits = append(f.edits, sent{Ref: ref, Content: content})
	return nil
}

func (f *fakeSender) AttachControls(_ context.Context, ref domain.MessageRef) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.attached = append(f.attached, ref)
	return nil
}

func (f *fakeSender) DetachControls(_ context.Context, ref domain.MessageRef) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.detached = append(f.detached, ref)
	return nil
}

func (f *fakeSender) Sent() []sent {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	return append([]sent(nil), f.sent...)
}

func (f *fakeSender) Edits() []sent {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	return append([]sent(nil), f.edits...)
}

func (f *fakeSender) Attached() []domain.MessageRef {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	return append([]domain.MessageRef(nil), f.attached...)
}

func (f *fakeSender) Detached() []domain.MessageRef {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	return append([]domain.MessageRef(nil), f.detached...)
}
