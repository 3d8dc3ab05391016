// Package stream はエンコード済みフレームを複数のHTTPクライアントへ配信する
//
// # 責務
// - 購読者ごとのフレーム配信（MJPEGストリーム用）
// - 遅い購読者によるフレーム生産側のブロック防止（破棄によるバックプレッシャ）
// - カメラ一時停止・デバイス喪失時のプレースホルダ配信
package stream

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status は配信の状態を表す
type Status string

const (
	// StatusLive は通常配信中
	StatusLive Status = "live"
	// StatusPaused はカメラが一時解放されている状態
	StatusPaused Status = "paused"
	// StatusNoSignal はカメラが利用できない状態
	StatusNoSignal Status = "no_signal"
)

// subscriberBuffer は購読者ごとのフレームバッファ数
const subscriberBuffer = 10

// placeholderInterval はライブ配信でない間のプレースホルダ配信間隔
const placeholderInterval = 500 * time.Millisecond

// Subscriber は1つのストリーム購読を表す
type Subscriber struct {
	id uuid.UUID
	ch chan []byte
}

// ID は購読者の識別子を返す
func (s *Subscriber) ID() string {
	return s.id.String()
}

// Frames は購読者が受信するフレームのチャンネルを返す
func (s *Subscriber) Frames() <-chan []byte {
	return s.ch
}

// Multiplexer はフレームを全購読者へ配信する
//
// vision.FrameSink を実装する。遅い購読者のチャンネルが満杯の場合は
// その購読者の古いフレームを破棄し、配信側は決してブロックしない。
type Multiplexer struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]*Subscriber
	status      Status
	lastFrame   []byte

	pausedFrame   []byte
	noSignalFrame []byte
}

// NewMultiplexer は新しいMultiplexerを作成する
func NewMultiplexer() *Multiplexer {
	return &Multiplexer{
		subscribers:   make(map[uuid.UUID]*Subscriber),
		status:        StatusNoSignal,
		pausedFrame:   encodePlaceholder(pausedColor),
		noSignalFrame: encodePlaceholder(noSignalColor),
	}
}

// Run はプレースホルダの定期配信を行う
// ライブ配信でない間もクライアント接続にフレームを流し続けるため
func (m *Multiplexer) Run(ctx context.Context) {
	ticker := time.NewTicker(placeholderInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.mu.RLock()
			status := m.status
			m.mu.RUnlock()

			if status != StatusLive {
				m.broadcast(m.placeholderFor(status))
			}
		}
	}
}

// Subscribe は新しい購読を開始する
func (m *Multiplexer) Subscribe() *Subscriber {
	sub := &Subscriber{
		id: uuid.New(),
		ch: make(chan []byte, subscriberBuffer),
	}

	m.mu.Lock()
	m.subscribers[sub.id] = sub

	// 最初のフレームをすぐ渡す（接続直後の空白を避ける）
	first := m.lastFrame
	if m.status != StatusLive || first == nil {
		first = m.placeholderFor(m.status)
	}
	m.mu.Unlock()

	sub.ch <- first
	return sub
}

// Unsubscribe は購読を終了する
func (m *Multiplexer) Unsubscribe(sub *Subscriber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscribers, sub.id)
}

// SubscriberCount は現在の購読者数を返す
func (m *Multiplexer) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscribers)
}

// Status は現在の配信状態を返す
func (m *Multiplexer) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Publish はフレームを全購読者へ配信する
func (m *Multiplexer) Publish(frame []byte) {
	m.mu.Lock()
	m.lastFrame = frame
	m.mu.Unlock()

	m.broadcast(frame)
}

// SetLive は通常配信状態に遷移する
func (m *Multiplexer) SetLive() {
	m.setStatus(StatusLive)
}

// SetPaused はカメラ一時停止状態に遷移する
// クライアントが「信号なし」と「一時的な明け渡し」を区別できるよう
// 専用のプレースホルダを配信する
func (m *Multiplexer) SetPaused() {
	m.setStatus(StatusPaused)
}

// SetNoSignal はカメラ利用不能状態に遷移する
func (m *Multiplexer) SetNoSignal() {
	m.setStatus(StatusNoSignal)
}

// setStatus は配信状態を変更し、プレースホルダを即時配信する
func (m *Multiplexer) setStatus(status Status) {
	m.mu.Lock()
	m.status = status
	m.mu.Unlock()

	if status != StatusLive {
		m.broadcast(m.placeholderFor(status))
	}
}

// placeholderFor は状態に応じたプレースホルダフレームを返す
func (m *Multiplexer) placeholderFor(status Status) []byte {
	if status == StatusPaused {
		return m.pausedFrame
	}
	return m.noSignalFrame
}

// broadcast はフレームを全購読者へ送信する
// 満杯のチャンネルでは古いフレームを破棄する（送信側はブロックしない）
func (m *Multiplexer) broadcast(frame []byte) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.subscribers {
		select {
		case sub.ch <- frame:
		default:
			// 購読者が遅れている場合は古いフレームを破棄
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- frame:
			default:
			}
		}
	}
}
