package camera

import (
	"context"
	"sync"
)

// MockSource はテスト用の Source 実装
// 合成フレームを手動で注入できる
type MockSource struct {
	mu    sync.RWMutex
	state HandleState

	frameChan chan []byte
	errorChan chan error

	// テスト制御用
	available      bool
	shouldFailOpen bool
	openCount      int
	releaseCount   int
}

// NewMockSource は新しいMockSourceを作成する
func NewMockSource() *MockSource {
	return &MockSource{
		state:     StateClosed,
		frameChan: make(chan []byte, 10),
		errorChan: make(chan error, 5),
		available: true,
	}
}

// Open はモックソースを開始する
func (m *MockSource) Open(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.openCount++

	if m.shouldFailOpen || !m.available {
		return ErrDeviceUnavailable
	}

	m.state = StateOpen
	return nil
}

// Release はモックソースを解放する
func (m *MockSource) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.releaseCount++
	m.state = StatePaused
	return nil
}

// Close はモックソースを閉じる
func (m *MockSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = StateClosed
	return nil
}

// Frames はフレームチャンネルを返す
func (m *MockSource) Frames() <-chan []byte {
	return m.frameChan
}

// Errors はエラーチャンネルを返す
func (m *MockSource) Errors() <-chan error {
	return m.errorChan
}

// State は現在のハンドル状態を返す
func (m *MockSource) State() HandleState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsAvailable はデバイスが利用可能かチェックする
func (m *MockSource) IsAvailable(_ context.Context) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.available
}

// PushFrame はテスト用にフレームを注入する
func (m *MockSource) PushFrame(frame []byte) {
	select {
	case m.frameChan <- frame:
	default:
	}
}

// SetAvailable はテスト用にデバイスの利用可能性を設定する
func (m *MockSource) SetAvailable(available bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = available
}

// SetShouldFailOpen はテスト用にOpen失敗を設定する
func (m *MockSource) SetShouldFailOpen(shouldFail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFailOpen = shouldFail
}

// OpenCount はOpenが呼ばれた回数を返す
func (m *MockSource) OpenCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.openCount
}

// ReleaseCount はReleaseが呼ばれた回数を返す
func (m *MockSource) ReleaseCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.releaseCount
}
