package camera

import (
	"context"
	"fmt"
	"sync"
)

// V4L2Source はV4L2デバイスの Source 実装
type V4L2Source struct {
	capturer *V4L2Capturer

	mu    sync.RWMutex
	state HandleState

	// キャプチャ停止用（Open のたびに作り直す）
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// 外部に公開するチャンネル（Open/Close をまたいで維持する）
	frameChan chan []byte
	errorChan chan error

	// キャプチャプロセスとの内部チャンネル
	internalFrameChan chan []byte
	internalErrorChan chan error
}

// NewV4L2Source は新しいV4L2Sourceを作成する
func NewV4L2Source(devicePath string, width, height, fps int) *V4L2Source {
	return &V4L2Source{
		capturer:  NewV4L2Capturer(devicePath, width, height, fps),
		state:     StateClosed,
		frameChan: make(chan []byte, 10),
		errorChan: make(chan error, 5),
	}
}

// Open はデバイスを開いてキャプチャを開始する
func (s *V4L2Source) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateOpen {
		return nil // 既に開始済み
	}

	if !s.capturer.IsDeviceAvailable(ctx) {
		return fmt.Errorf("%w: %s", ErrDeviceUnavailable, s.capturer.devicePath)
	}

	// キャプチャ専用のコンテキストを作成
	// 呼び出し元のコンテキストがキャンセルされた場合もキャプチャを止める
	captureCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.internalFrameChan = make(chan []byte, 10)
	s.internalErrorChan = make(chan error, 5)

	s.capturer.StartStream(captureCtx, s.internalFrameChan, s.internalErrorChan)

	// フレーム転送ゴルーチンを開始
	s.wg.Add(1)
	go s.forwardFrames(captureCtx)

	s.state = StateOpen
	return nil
}

// Release はデバイスを解放し、再取得待ち状態にする
func (s *V4L2Source) Release() error {
	return s.stop(StatePaused)
}

// Close はキャプチャを終了しデバイスを閉じる
func (s *V4L2Source) Close() error {
	return s.stop(StateClosed)
}

// stop はキャプチャを停止して指定の状態に遷移する
func (s *V4L2Source) stop(next HandleState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateOpen {
		s.state = next
		return nil // キャプチャ中でなければ状態だけ変える
	}

	// ffmpegプロセスを停止
	s.cancel()
	s.wg.Wait()
	s.cancel = nil

	s.state = next
	return nil
}

// Frames はJPEGフレームのチャンネルを返す
func (s *V4L2Source) Frames() <-chan []byte {
	return s.frameChan
}

// Errors はキャプチャ中のエラーチャンネルを返す
func (s *V4L2Source) Errors() <-chan error {
	return s.errorChan
}

// State は現在のハンドル状態を返す
func (s *V4L2Source) State() HandleState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// IsAvailable はデバイスが利用可能かチェックする
func (s *V4L2Source) IsAvailable(ctx context.Context) bool {
	return s.capturer.IsDeviceAvailable(ctx)
}

// forwardFrames は内部チャンネルから外部チャンネルへフレームを転送する
func (s *V4L2Source) forwardFrames(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case frame, ok := <-s.internalFrameChan:
			if !ok {
				return
			}

			// フレームを転送
			select {
			case s.frameChan <- frame:
			default:
				// チャンネルがフルの場合は古いフレームを破棄
				select {
				case <-s.frameChan:
				default:
				}
				select {
				case s.frameChan <- frame:
				default:
				}
			}

		case err, ok := <-s.internalErrorChan:
			if !ok {
				return
			}

			// エラーを転送（フルの場合は古いエラーを破棄）
			select {
			case s.errorChan <- err:
			default:
				select {
				case <-s.errorChan:
				default:
				}
				select {
				case s.errorChan <- err:
				default:
				}
			}
		}
	}
}
