package vision

import (
	"context"
	"time"
)

// Detection は1つの検出結果を表す
// 座標と半径はフレームサイズで正規化されている（0〜1）
type Detection struct {
	Label      string  `json:"label"`
	CX         float64 `json:"cx"`
	CY         float64 `json:"cy"`
	Radius     float64 `json:"radius"`
	Confidence float64 `json:"confidence"`
}

// Snapshot は最新の検出バッチと鮮度情報を表す
type Snapshot struct {
	Detections []Detection `json:"detections"`
	CapturedAt time.Time   `json:"captured_at"`
	Stale      bool        `json:"stale"`
}

// Detector は1フレームに対する物体検出を抽象化する
// 実装は隠れた状態を持たない純粋な呼び出しであること
type Detector interface {
	Detect(ctx context.Context, frame []byte) ([]Detection, error)
}

// NopDetector は何も検出しない Detector 実装
// 検出モデルが接続されていない構成で使う
type NopDetector struct{}

// Detect は常に空の検出結果を返す
func (NopDetector) Detect(_ context.Context, _ []byte) ([]Detection, error) {
	return nil, nil
}

// FrameSink は推論ループが取得したフレームの出力先を抽象化する
// 実装は受信側の遅延でループをブロックしてはならない
type FrameSink interface {
	// Publish はエンコード済みJPEGフレームを配信する
	Publish(frame []byte)

	// SetLive は通常配信状態を通知する
	SetLive()

	// SetPaused はカメラが一時解放された状態を通知する
	SetPaused()

	// SetNoSignal はカメラが利用できない状態を通知する
	SetNoSignal()
}
