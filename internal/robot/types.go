package robot

import (
	"errors"
	"time"
)

// State は制御プロセスの状態を表す
type State string

const (
	// StateStopped はプロセスが存在しない状態
	StateStopped State = "stopped"
	// StateStarting はプロセスを起動中の状態
	StateStarting State = "starting"
	// StateRunning はプロセスが動作中の状態
	StateRunning State = "running"
	// StateStopping は正常停止を待っている状態
	StateStopping State = "stopping"
	// StateCrashed はプロセスが予期せず終了した状態
	StateCrashed State = "crashed"
)

// ErrAlreadyRunning はプロセスが既に起動している場合に返される
var ErrAlreadyRunning = errors.New("制御プロセスは既に起動しています")

// ErrProcessStartFailure はプロセスの起動に失敗した場合に返される
var ErrProcessStartFailure = errors.New("制御プロセスの起動に失敗しました")

// Record は制御プロセスの状態スナップショット
type Record struct {
	State      State     `json:"state"`
	PID        int       `json:"pid"`
	StartedAt  time.Time `json:"started_at"`
	LastTarget string    `json:"last_target"`
}

// EventType はブリッジイベントの種別を表す
type EventType string

const (
	// EventOutput はプロセス出力の1行
	EventOutput EventType = "output"
	// EventStatusChange は状態遷移の通知
	EventStatusChange EventType = "status_change"
)

// Event はブリッジのイベントストリームの1要素
type Event struct {
	Type      EventType `json:"type"`
	Payload   string    `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}
