package voice

import (
	"context"
	"errors"
)

// Decision はコマンド検証の結果を表す
type Decision struct {
	Valid  bool   `json:"valid"`
	Target string `json:"target"`
	Reason string `json:"reason"`
}

// ErrValidationUnavailable は検証のリトライを使い切った場合に返される
var ErrValidationUnavailable = errors.New("コマンド検証が利用できません")

// PipelineState はコマンドパイプラインの状態を表す
type PipelineState string

const (
	// StateIdle は待機中
	StateIdle PipelineState = "idle"
	// StateAnnouncing は可視オブジェクトの読み上げ中
	StateAnnouncing PipelineState = "announcing"
	// StateListening は音声コマンドの待ち受け中
	StateListening PipelineState = "listening"
	// StateProcessing はコマンド検証中
	StateProcessing PipelineState = "processing"
	// StateExecuting はピック実行の指示中
	StateExecuting PipelineState = "executing"
	// StateError はエラー表示中（一定時間後に Idle へ戻る）
	StateError PipelineState = "error"
)

// Announcer は可視オブジェクトの読み上げ（TTS）を抽象化する
type Announcer interface {
	// AnnounceVisibleObjects はオブジェクト一覧を読み上げ、話した内容を返す
	AnnounceVisibleObjects(ctx context.Context, objects []string) (string, error)
}

// SpeechCapturer は音声コマンドの録音と文字起こし（STT）を抽象化する
type SpeechCapturer interface {
	// CaptureSpeech は指定秒数の音声を取得し文字起こしを返す
	CaptureSpeech(ctx context.Context, durationSeconds int) (string, error)
}

// CommandValidator は文字起こしされたコマンドの検証を抽象化する
// 繰り返し呼び出しても安全であること（リトライされる）
type CommandValidator interface {
	// ValidateCommand はコマンドと可視オブジェクト一覧から判定を返す
	ValidateCommand(ctx context.Context, transcript string, whitelist []string) (Decision, error)
}
