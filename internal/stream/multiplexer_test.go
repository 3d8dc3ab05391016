package stream

import (
	"bytes"
	"context"
	"testing"
	"time"
)

// receiveFrame はタイムアウト付きでフレームを受信する
func receiveFrame(t *testing.T, sub *Subscriber, timeout time.Duration) []byte {
	t.Helper()

	select {
	case frame := <-sub.Frames():
		return frame
	case <-time.After(timeout):
		t.Fatal("フレームの受信がタイムアウトしました")
		return nil
	}
}

// TestMultiplexer_SubscribeReceivesFirstFrame は購読直後のフレーム受信をテストする
// 接続直後の空白を避けるため、最初のフレームはすぐ渡されること
func TestMultiplexer_SubscribeReceivesFirstFrame(t *testing.T) {
	mux := NewMultiplexer()

	sub := mux.Subscribe()
	defer mux.Unsubscribe(sub)

	// ライブ配信前なのでプレースホルダが渡される
	frame := receiveFrame(t, sub, time.Second)
	if len(frame) == 0 {
		t.Fatal("最初のフレームが空です")
	}
}

// TestMultiplexer_PublishReachesAllSubscribers は全購読者への配信をテストする
func TestMultiplexer_PublishReachesAllSubscribers(t *testing.T) {
	mux := NewMultiplexer()
	mux.SetLive()

	sub1 := mux.Subscribe()
	defer mux.Unsubscribe(sub1)
	sub2 := mux.Subscribe()
	defer mux.Unsubscribe(sub2)

	// 購読直後のプレースホルダ／直前フレームを読み捨てる
	receiveFrame(t, sub1, time.Second)
	receiveFrame(t, sub2, time.Second)

	want := []byte("frame-data")
	mux.Publish(want)

	for _, sub := range []*Subscriber{sub1, sub2} {
		got := receiveFrame(t, sub, time.Second)
		if !bytes.Equal(got, want) {
			t.Errorf("受信フレームが異なります: got %q, want %q", got, want)
		}
	}
}

// TestMultiplexer_SlowSubscriberDoesNotBlock は遅い購読者がいても配信側が
// ブロックしないことをテストする。満杯の購読者では古いフレームが破棄される
func TestMultiplexer_SlowSubscriberDoesNotBlock(t *testing.T) {
	mux := NewMultiplexer()
	mux.SetLive()

	sub := mux.Subscribe()
	defer mux.Unsubscribe(sub)

	// バッファを大きく超える数のフレームを配信する
	// 購読者が読まなくても Publish は決してブロックしない
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriberBuffer*10; i++ {
			mux.Publish([]byte{byte(i)})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("配信側がブロックされました")
	}

	// チャンネルに残っているのは新しいフレーム側（古いものは破棄済み）
	var last []byte
	for {
		select {
		case frame := <-sub.Frames():
			last = frame
		default:
			if len(last) == 0 {
				t.Fatal("フレームが1つも残っていません")
			}
			return
		}
	}
}

// TestMultiplexer_Unsubscribe は購読解除をテストする
func TestMultiplexer_Unsubscribe(t *testing.T) {
	mux := NewMultiplexer()

	sub := mux.Subscribe()
	if count := mux.SubscriberCount(); count != 1 {
		t.Fatalf("購読者数が異なります: got %d, want 1", count)
	}

	mux.Unsubscribe(sub)
	if count := mux.SubscriberCount(); count != 0 {
		t.Fatalf("購読解除後の購読者数が異なります: got %d, want 0", count)
	}
}

// TestMultiplexer_PausedPlaceholder は一時停止時のプレースホルダ配信をテストする
// クライアントが「一時停止」と「信号なし」を区別できること
func TestMultiplexer_PausedPlaceholder(t *testing.T) {
	mux := NewMultiplexer()
	mux.SetLive()

	sub := mux.Subscribe()
	defer mux.Unsubscribe(sub)
	receiveFrame(t, sub, time.Second)

	mux.SetPaused()
	if status := mux.Status(); status != StatusPaused {
		t.Errorf("配信状態が異なります: got %v, want %v", status, StatusPaused)
	}

	pausedFrame := receiveFrame(t, sub, time.Second)

	mux.SetNoSignal()
	noSignalFrame := receiveFrame(t, sub, time.Second)

	// どちらもJPEGとして有効で、かつ互いに異なる画像であること
	for _, frame := range [][]byte{pausedFrame, noSignalFrame} {
		if !bytes.HasPrefix(frame, []byte{0xFF, 0xD8}) {
			t.Error("プレースホルダがJPEGではありません")
		}
	}
	if bytes.Equal(pausedFrame, noSignalFrame) {
		t.Error("一時停止と信号なしのプレースホルダが同一です")
	}
}

// TestMultiplexer_PlaceholderTicker はライブ配信でない間の定期配信をテストする
func TestMultiplexer_PlaceholderTicker(t *testing.T) {
	mux := NewMultiplexer()

	sub := mux.Subscribe()
	defer mux.Unsubscribe(sub)
	receiveFrame(t, sub, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go mux.Run(ctx)

	// ティッカーによる配信が継続して届く
	receiveFrame(t, sub, 2*time.Second)
	receiveFrame(t, sub, 2*time.Second)
}
