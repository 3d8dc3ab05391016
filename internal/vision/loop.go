package vision

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"scrapple/internal/camera"
)

// Options は推論ループの動作設定
type Options struct {
	// 何フレームごとに検出を実行するか（1以下なら毎フレーム）
	DetectEvery int

	// カメラオープン失敗時のリトライ回数と間隔
	OpenRetries       int
	OpenRetryInterval time.Duration
}

// Loop はカメラフレームの取得と検出器の実行を担う推論ループ
//
// arbiter.VisionController を実装する。Pause はカメラ解放の確認が
// 取れるまでブロックし、確認後はポーリングせず Resume まで待機する。
type Loop struct {
	source   camera.Source
	detector Detector
	cache    *Cache
	sink     FrameSink
	opts     Options

	mu      sync.Mutex
	running bool
	paused  bool

	// 一時停止要求（確認チャンネル付き）と再開通知
	pauseCh  chan chan struct{}
	resumeCh chan struct{}
}

// NewLoop は新しいLoopを作成する
func NewLoop(source camera.Source, detector Detector, cache *Cache, sink FrameSink, opts Options) *Loop {
	if opts.DetectEvery < 1 {
		opts.DetectEvery = 1
	}
	if opts.OpenRetries < 1 {
		opts.OpenRetries = 1
	}
	if opts.OpenRetryInterval <= 0 {
		opts.OpenRetryInterval = time.Second
	}

	return &Loop{
		source:   source,
		detector: detector,
		cache:    cache,
		sink:     sink,
		opts:     opts,
		pauseCh:  make(chan chan struct{}),
		resumeCh: make(chan struct{}, 1),
	}
}

// Run は推論ループを実行する
// コンテキストのキャンセルまで戻らない
func (l *Loop) Run(ctx context.Context) {
	l.mu.Lock()
	l.running = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
		_ = l.source.Close()
	}()

	frameCount := 0

	for {
		// 起動前に一時停止されていた場合は再開まで待つ
		if l.Paused() {
			if !l.waitResume(ctx) {
				return
			}
		}

		if err := l.openWithRetry(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}

			// リトライを使い切った場合は縮退運転に入る
			// クラッシュせず、プレースホルダ配信と低頻度の復旧確認を続ける
			log.Printf("[VISION] カメラを開けません。縮退運転に入ります: %v", err)
			if !l.waitDegraded(ctx) {
				return
			}
			continue
		}

		l.sink.SetLive()
		log.Printf("[VISION] カメラキャプチャを開始しました")

		if !l.serveFrames(ctx, &frameCount) {
			return
		}
	}
}

// serveFrames はフレームの取得・検出・配信を行う
// 再オープンが必要な場合は true、終了すべき場合は false を返す
func (l *Loop) serveFrames(ctx context.Context, frameCount *int) bool {
	for {
		select {
		case <-ctx.Done():
			return false

		case ack := <-l.pauseCh:
			// カメラを解放してから確認を返す
			_ = l.source.Release()
			l.cache.MarkStale()
			l.sink.SetPaused()
			log.Printf("[VISION] カメラを解放しました（一時停止）")
			close(ack)

			if !l.waitResume(ctx) {
				return false
			}
			log.Printf("[VISION] 再開要求を受信しました")
			return true

		case frame, ok := <-l.source.Frames():
			if !ok {
				return true
			}

			*frameCount++
			if l.opts.DetectEvery <= 1 || *frameCount%l.opts.DetectEvery == 1 {
				dets, err := l.detector.Detect(ctx, frame)
				if err != nil {
					log.Printf("[VISION] 検出に失敗: %v", err)
				} else {
					l.cache.Set(dets)
				}
			} else {
				// 検出しないフレームでは前回のバッチをそのまま再掲する
				l.cache.Republish()
			}

			l.sink.Publish(frame)

		case err, ok := <-l.source.Errors():
			if ok && err != nil {
				log.Printf("[VISION] キャプチャエラー: %v", err)
			}
		}
	}
}

// openWithRetry はリトライ付きでカメラを開く
func (l *Loop) openWithRetry(ctx context.Context) error {
	var lastErr error

	for attempt := 0; attempt < l.opts.OpenRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case ack := <-l.pauseCh:
				// カメラは保持していないので即時確認
				close(ack)
				if !l.waitResume(ctx) {
					return ctx.Err()
				}
			case <-time.After(l.opts.OpenRetryInterval):
			}
		}

		if err := l.source.Open(ctx); err != nil {
			lastErr = err
			log.Printf("[VISION] カメラオープンに失敗（%d回目）: %v", attempt+1, err)
			continue
		}

		return nil
	}

	return fmt.Errorf("カメラオープンのリトライを使い切りました: %w", lastErr)
}

// waitDegraded は縮退運転の待機を行う
// 復旧またはポーズ後の再開で true、終了すべき場合は false を返す
func (l *Loop) waitDegraded(ctx context.Context) bool {
	l.cache.MarkStale()
	l.sink.SetNoSignal()

	ticker := time.NewTicker(l.opts.OpenRetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false

		case ack := <-l.pauseCh:
			close(ack)
			if !l.waitResume(ctx) {
				return false
			}
			return true

		case <-ticker.C:
			if l.source.IsAvailable(ctx) {
				log.Printf("[VISION] カメラデバイスが復旧しました")
				return true
			}
		}
	}
}

// waitResume は再開通知を待つ（ポーリングなし）
func (l *Loop) waitResume(ctx context.Context) bool {
	select {
	case <-l.resumeCh:
		return true
	case <-ctx.Done():
		return false
	}
}

// Pause はループを一時停止し、カメラ解放の確認が取れるまでブロックする
// 既に停止している場合は何もしない（冪等）
func (l *Loop) Pause(ctx context.Context) error {
	l.mu.Lock()
	if l.paused {
		l.mu.Unlock()
		return nil
	}
	if !l.running {
		// ループが動いていなければカメラは保持していない
		l.paused = true
		l.mu.Unlock()
		return nil
	}
	l.paused = true
	l.mu.Unlock()

	ack := make(chan struct{})

	select {
	case l.pauseCh <- ack:
	case <-ctx.Done():
		l.setPaused(false)
		return fmt.Errorf("一時停止要求の送信がタイムアウト: %w", ctx.Err())
	}

	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		// 要求は届いているため、取り残されないよう再開を積んでおく
		l.setPaused(false)
		select {
		case l.resumeCh <- struct{}{}:
		default:
		}
		return fmt.Errorf("カメラ解放の確認がタイムアウト: %w", ctx.Err())
	}
}

// Resume はループを再開する
// 停止していない場合は何もしない（冪等）
func (l *Loop) Resume() {
	l.mu.Lock()
	if !l.paused {
		l.mu.Unlock()
		return
	}
	l.paused = false
	l.mu.Unlock()

	select {
	case l.resumeCh <- struct{}{}:
	default:
	}
}

// Paused は一時停止中かどうかを返す
func (l *Loop) Paused() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.paused
}

// setPaused は一時停止フラグを設定する
func (l *Loop) setPaused(paused bool) {
	l.mu.Lock()
	l.paused = paused
	l.mu.Unlock()
}
