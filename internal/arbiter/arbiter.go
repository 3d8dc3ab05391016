// Package arbiter はビジョン系とロボット系の間でカメラの排他所有権を調停する
package arbiter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Owner はカメラの所有者を表す
type Owner string

const (
	// OwnerNone は誰もカメラを所有していない状態
	OwnerNone Owner = "none"
	// OwnerVision は推論ループがカメラを所有している状態
	OwnerVision Owner = "vision"
	// OwnerRobot はロボット制御プロセスがカメラを所有している状態
	OwnerRobot Owner = "robot"
)

// ErrResourceBusy は所有権の取得がタイムアウトした場合に返される
var ErrResourceBusy = errors.New("カメラリソースが解放されませんでした")

// ErrOwnershipConflict は不正な所有権操作の場合に返される
var ErrOwnershipConflict = errors.New("所有権の競合が発生しました")

// VisionController は推論ループの一時停止・再開を抽象化する
//
// Pause はカメラデバイスの解放が確認できるまでブロックする。
// Resume は非同期でよい（呼び出し側は最初のフレームを待たない）。
type VisionController interface {
	Pause(ctx context.Context) error
	Resume()
}

// Arbiter はカメラ所有権の遷移を一元管理する
//
// 全ての遷移は単一のミューテックスを通る。ただし Pause の完了待ちのような
// ブロッキング処理はロックの外で行い、予約（pending）で競合を防ぐ。
type Arbiter struct {
	mu      sync.Mutex
	owner   Owner
	pending Owner

	vision         VisionController
	acquireTimeout time.Duration
}

// New は新しいArbiterを作成する
// 初期所有者は Vision（ロボット操作がない間のデフォルト状態）
func New(vision VisionController, acquireTimeout time.Duration) *Arbiter {
	return &Arbiter{
		owner:          OwnerVision,
		pending:        OwnerNone,
		vision:         vision,
		acquireTimeout: acquireTimeout,
	}
}

// Acquire は指定した所有者のためにカメラ所有権を取得する
func (a *Arbiter) Acquire(ctx context.Context, owner Owner) error {
	switch owner {
	case OwnerRobot:
		return a.acquireRobot(ctx)
	case OwnerVision:
		return a.acquireVision()
	default:
		return fmt.Errorf("%w: 不明な所有者 %q", ErrOwnershipConflict, owner)
	}
}

// acquireRobot はロボットのために所有権を取得する
// 推論ループにカメラ解放を要求し、確認が取れるまで（上限付きで）待つ
func (a *Arbiter) acquireRobot(ctx context.Context) error {
	a.mu.Lock()

	if a.owner == OwnerRobot {
		a.mu.Unlock()
		return nil // 既に所有済み（二重取得は no-op）
	}

	if a.pending != OwnerNone {
		a.mu.Unlock()
		return fmt.Errorf("%w: 別の取得要求が進行中です", ErrOwnershipConflict)
	}

	// 取得を予約してからロックを手放す
	// Pause の完了待ち中に他の取得要求が割り込むのを防ぐ
	a.pending = OwnerRobot
	a.mu.Unlock()

	pauseCtx, cancel := context.WithTimeout(ctx, a.acquireTimeout)
	defer cancel()

	err := a.vision.Pause(pauseCtx)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = OwnerNone

	if err != nil {
		// 解放確認が取れなかった場合は所有権を移さない
		// 呼び出し側がカメラを開いてしまうと二重オープンになるため
		return fmt.Errorf("%w: %v", ErrResourceBusy, err)
	}

	a.owner = OwnerRobot
	return nil
}

// acquireVision はビジョンのために所有権を取得する（冪等）
func (a *Arbiter) acquireVision() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.owner {
	case OwnerVision:
		return nil // デフォルト状態
	case OwnerRobot:
		return fmt.Errorf("%w: ロボットがカメラを使用中です", ErrOwnershipConflict)
	default:
		a.owner = OwnerVision
		a.vision.Resume()
		return nil
	}
}

// Release は指定した所有者の所有権を解放する
func (a *Arbiter) Release(owner Owner) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.owner != owner {
		return fmt.Errorf("%w: %q は所有者ではありません（現在: %q）", ErrOwnershipConflict, owner, a.owner)
	}

	if owner == OwnerRobot {
		// 所有権をビジョンに戻して再開を通知する
		// 再開は非同期（最初のフレーム取得を待たない）
		a.owner = OwnerVision
		a.vision.Resume()
		return nil
	}

	a.owner = OwnerNone
	return nil
}

// ForceRelease は状態に関わらず所有権をビジョンに戻す（緊急リセット用）
// 何度呼んでも安全
func (a *Arbiter) ForceRelease() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.owner = OwnerVision
	a.pending = OwnerNone
	a.vision.Resume()
}

// CurrentOwner は現在の所有者を返す
func (a *Arbiter) CurrentOwner() Owner {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.owner
}
