package camera

import (
	"bytes"
	"context"
	"testing"
)

// jpegFrame はテスト用の最小JPEGフレームを組み立てる
func jpegFrame(payload ...byte) []byte {
	frame := []byte{0xFF, 0xD8}
	frame = append(frame, payload...)
	frame = append(frame, 0xFF, 0xD9)
	return frame
}

// TestExtractJPEGFrames_SingleFrame は単一フレームの切り出しをテストする
func TestExtractJPEGFrames_SingleFrame(t *testing.T) {
	buffer := bytes.Buffer{}
	want := jpegFrame(0x01, 0x02, 0x03)
	buffer.Write(want)

	frames := ExtractJPEGFrames(&buffer)
	if len(frames) != 1 {
		t.Fatalf("フレーム数が異なります: got %d, want 1", len(frames))
	}
	if !bytes.Equal(frames[0], want) {
		t.Errorf("フレーム内容が異なります: got %v, want %v", frames[0], want)
	}
	if buffer.Len() != 0 {
		t.Errorf("バッファにデータが残っています: %d bytes", buffer.Len())
	}
}

// TestExtractJPEGFrames_MultipleFrames は複数フレームの一括切り出しをテストする
func TestExtractJPEGFrames_MultipleFrames(t *testing.T) {
	buffer := bytes.Buffer{}
	first := jpegFrame(0x01)
	second := jpegFrame(0x02)
	buffer.Write(first)
	buffer.Write(second)

	frames := ExtractJPEGFrames(&buffer)
	if len(frames) != 2 {
		t.Fatalf("フレーム数が異なります: got %d, want 2", len(frames))
	}
	if !bytes.Equal(frames[0], first) || !bytes.Equal(frames[1], second) {
		t.Error("フレーム内容が異なります")
	}
}

// TestExtractJPEGFrames_PartialFrame は不完全なフレームの保持をテストする
// 終了マーカーが届くまでバッファに残り続けること
func TestExtractJPEGFrames_PartialFrame(t *testing.T) {
	buffer := bytes.Buffer{}
	buffer.Write([]byte{0xFF, 0xD8, 0x01, 0x02})

	frames := ExtractJPEGFrames(&buffer)
	if len(frames) != 0 {
		t.Fatalf("不完全なフレームが切り出されました: %d frames", len(frames))
	}
	if buffer.Len() != 4 {
		t.Errorf("不完全なフレームが保持されていません: %d bytes", buffer.Len())
	}

	// 残りのデータが届くと完全なフレームになる
	buffer.Write([]byte{0xFF, 0xD9})
	frames = ExtractJPEGFrames(&buffer)
	if len(frames) != 1 {
		t.Fatalf("フレームが切り出されませんでした: got %d, want 1", len(frames))
	}
}

// TestExtractJPEGFrames_GarbageBeforeStart は開始マーカー前のゴミデータの除去をテストする
func TestExtractJPEGFrames_GarbageBeforeStart(t *testing.T) {
	buffer := bytes.Buffer{}
	buffer.Write([]byte{0x00, 0x11, 0x22})
	want := jpegFrame(0xAB)
	buffer.Write(want)

	frames := ExtractJPEGFrames(&buffer)
	if len(frames) != 1 {
		t.Fatalf("フレーム数が異なります: got %d, want 1", len(frames))
	}
	if !bytes.Equal(frames[0], want) {
		t.Errorf("フレーム内容が異なります: got %v, want %v", frames[0], want)
	}
}

// TestExtractJPEGFrames_SplitStartMarker は読み取り境界で分割された開始マーカーをテストする
// 末尾の 0xFF は次の読み取りと合わせてマーカーになる可能性があるため破棄しない
func TestExtractJPEGFrames_SplitStartMarker(t *testing.T) {
	buffer := bytes.Buffer{}
	buffer.Write([]byte{0x00, 0x01, 0xFF}) // 末尾がマーカー前半

	frames := ExtractJPEGFrames(&buffer)
	if len(frames) != 0 {
		t.Fatalf("フレームが切り出されました: %d frames", len(frames))
	}
	if buffer.Len() != 1 || buffer.Bytes()[0] != 0xFF {
		t.Fatalf("マーカー前半が保持されていません: %v", buffer.Bytes())
	}

	// マーカー後半と残りが届くとフレームが完成する
	buffer.Write([]byte{0xD8, 0x07, 0xFF, 0xD9})
	frames = ExtractJPEGFrames(&buffer)
	if len(frames) != 1 {
		t.Fatalf("フレームが切り出されませんでした: got %d, want 1", len(frames))
	}
}

// TestExtractJPEGFrames_Empty は空バッファの扱いをテストする
func TestExtractJPEGFrames_Empty(t *testing.T) {
	buffer := bytes.Buffer{}

	frames := ExtractJPEGFrames(&buffer)
	if len(frames) != 0 {
		t.Errorf("空バッファからフレームが切り出されました: %d frames", len(frames))
	}
}

// TestMockSource_HandleStates はモックソースのハンドル状態遷移をテストする
func TestMockSource_HandleStates(t *testing.T) {
	source := NewMockSource()

	if state := source.State(); state != StateClosed {
		t.Errorf("初期状態が異なります: got %v, want %v", state, StateClosed)
	}

	if err := source.Open(context.Background()); err != nil {
		t.Fatalf("オープンに失敗しました: %v", err)
	}
	if state := source.State(); state != StateOpen {
		t.Errorf("オープン後の状態が異なります: got %v, want %v", state, StateOpen)
	}

	if err := source.Release(); err != nil {
		t.Fatalf("解放に失敗しました: %v", err)
	}
	if state := source.State(); state != StatePaused {
		t.Errorf("解放後の状態が異なります: got %v, want %v", state, StatePaused)
	}

	if err := source.Close(); err != nil {
		t.Fatalf("クローズに失敗しました: %v", err)
	}
	if state := source.State(); state != StateClosed {
		t.Errorf("クローズ後の状態が異なります: got %v, want %v", state, StateClosed)
	}
}
