package client

import (
	"sync"
	"time"
)

// audioFrame is the Opus frame duration the platform expects.
const audioFrame = 20 * time.Millisecond

// PacketProvider supplies encoded audio frames to an [AudioSendSystem]
// and receives them back once they are due for transmission.
type PacketProvider interface {
	// NextPacket returns the next frame, or nil when nothing is queued.
	NextPacket() []byte
	// Send is called with each frame at the frame cadence.
	Send(packet []byte) error
}

// AudioSendSystem paces frames from a [PacketProvider].
type AudioSendSystem interface {
	Start()
	Shutdown()
}

// AudioSendFactory creates the send system used by a voice connection.
type AudioSendFactory interface {
	CreateSendSystem(PacketProvider) AudioSendSystem
}

// DefaultAudioSendFactory paces frames with a ticker goroutine.
type DefaultAudioSendFactory struct{}

func (DefaultAudioSendFactory) CreateSendSystem(p PacketProvider) AudioSendSystem {
	return &tickerSendSystem{provider: p, interval: audioFrame}
}

type tickerSendSystem struct {
	provider PacketProvider
	interval time.Duration

	once sync.Once
	stop chan struct{}
	done chan struct{}
	mu   sync.Mutex
}

func (s *tickerSendSystem) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go s.loop()
}

func (s *tickerSendSystem) loop() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			packet := s.provider.NextPacket()
			if packet == nil {
				continue
			}
			if err := s.provider.Send(packet); err != nil {
				return
			}
		}
	}
}

// Shutdown stops the pacing loop and waits for it to exit.
func (s *tickerSendSystem) Shutdown() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.mu.Unlock()

	if stop == nil {
		return
	}

	s.once.Do(func() { close(stop) })
	<-done
}
