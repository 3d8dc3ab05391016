package camera

import (
	"context"
	"errors"
)

// HandleState はカメラハンドルの状態を表す
type HandleState string

const (
	// StateClosed はデバイスを保持していない状態
	StateClosed HandleState = "closed"
	// StateOpen はデバイスを排他的に保持しキャプチャ中の状態
	StateOpen HandleState = "open"
	// StatePaused は所有者がデバイスを解放し、再割り当てを待っている状態
	StatePaused HandleState = "paused"
)

// ErrDeviceUnavailable はカメラデバイスが開けない場合に返される
var ErrDeviceUnavailable = errors.New("カメラデバイスが利用できません")

// Source は1台の物理カメラのフレーム供給を統一するインターフェース
//
// デバイスの排他所有は呼び出し側（ResourceArbiter）が保証する。
// Source 自身は自分の状態遷移の整合性のみ保証する。
type Source interface {
	// Open はデバイスを開いてキャプチャを開始する
	Open(ctx context.Context) error

	// Release はデバイスを解放し、再取得待ち状態（Paused）にする
	Release() error

	// Close はキャプチャを終了しデバイスを閉じる
	Close() error

	// Frames はJPEGフレームのチャンネルを返す
	Frames() <-chan []byte

	// Errors はキャプチャ中のエラーチャンネルを返す
	Errors() <-chan error

	// State は現在のハンドル状態を返す
	State() HandleState

	// IsAvailable はデバイスが利用可能かチェックする
	IsAvailable(ctx context.Context) bool
}
