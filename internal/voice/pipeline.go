// Package voice は音声起点のピックサイクル（読み上げ→聞き取り→検証→実行）を駆動する
package voice

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"scrapple/internal/arbiter"
)

// ResourceAcquirer はカメラ所有権の操作を抽象化する
type ResourceAcquirer interface {
	Acquire(ctx context.Context, owner arbiter.Owner) error
	ForceRelease()
}

// RobotTrigger はロボットへのピック指示と強制停止を抽象化する
type RobotTrigger interface {
	Trigger(target string) error
	Stop(graceTimeout time.Duration) error
}

// Options はパイプラインの動作設定
type Options struct {
	// マイク録音の待ち受け秒数
	RecordSeconds int

	// 検証の最大試行回数と初回リトライ間隔（指数バックオフ）
	MaxAttempts   int
	RetryInterval time.Duration

	// エラー状態の表示時間（経過後 Idle に戻る）
	ErrorDisplayDelay time.Duration

	// 緊急リセット時のプロセス停止猶予
	StopGrace time.Duration
}

// CycleResult は1回のピックサイクルの結果
type CycleResult struct {
	CycleID      string   `json:"cycle_id"`
	Command      string   `json:"command"`
	Decision     Decision `json:"decision"`
	PromptSpoken string   `json:"prompt_spoken"`
	ResultSpoken string   `json:"result_spoken"`
}

// Pipeline はピックサイクルの状態機械
//
// Idle → Announcing → Listening → Processing → Executing → Idle と遷移し、
// どの状態からも Error →（表示時間経過後）→ Idle に落ちる。
// 状態は排他的に1つで、可変な内部構造は外部に公開しない。
type Pipeline struct {
	announcer Announcer
	capturer  SpeechCapturer
	validator CommandValidator
	resources ResourceAcquirer
	robot     RobotTrigger

	// 現在の可視オブジェクト一覧の取得元（検出キャッシュ由来）
	visibleObjects func() []string

	opts Options

	mu           sync.Mutex
	state        PipelineState
	lastCommand  string
	lastDecision *Decision
	cancel       context.CancelFunc
}

// NewPipeline は新しいPipelineを作成する
func NewPipeline(
	announcer Announcer,
	capturer SpeechCapturer,
	validator CommandValidator,
	resources ResourceAcquirer,
	robot RobotTrigger,
	visibleObjects func() []string,
	opts Options,
) *Pipeline {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = time.Second
	}
	if opts.ErrorDisplayDelay <= 0 {
		opts.ErrorDisplayDelay = 3 * time.Second
	}
	if opts.StopGrace <= 0 {
		opts.StopGrace = time.Second
	}

	return &Pipeline{
		announcer:      announcer,
		capturer:       capturer,
		validator:      validator,
		resources:      resources,
		robot:          robot,
		visibleObjects: visibleObjects,
		opts:           opts,
		state:          StateIdle,
	}
}

// RunCycle は1回のピックサイクルを実行する
// 読み上げ→聞き取り→検証→（有効なら）実行、の順に進む
func (p *Pipeline) RunCycle(ctx context.Context) (*CycleResult, error) {
	cycleCtx, err := p.begin(ctx, StateAnnouncing)
	if err != nil {
		return nil, err
	}
	defer p.clearCancel()

	result := &CycleResult{CycleID: uuid.New().String()}
	objects := p.visibleObjects()

	// 読み上げ（失敗しても続行する：無音のまま聞き取りへ進む）
	spoken, err := p.announcer.AnnounceVisibleObjects(cycleCtx, objects)
	if err != nil {
		log.Printf("[VOICE] 読み上げに失敗（続行します）: %v", err)
	}
	result.PromptSpoken = spoken

	// 聞き取り
	p.setState(StateListening)
	transcript, err := p.capturer.CaptureSpeech(cycleCtx, p.opts.RecordSeconds)
	if err != nil || transcript == "" {
		if err != nil {
			log.Printf("[VOICE] 聞き取りに失敗: %v", err)
		}
		// コマンドなし：エラー扱いにせず待機に戻る
		result.Decision = Decision{Valid: false, Reason: "コマンドを検出できませんでした"}
		result.ResultSpoken = "No command detected."
		p.setState(StateIdle)
		return result, nil
	}
	result.Command = transcript

	return p.processAndExecute(cycleCtx, transcript, objects, result)
}

// EvaluateCommand は外部から与えられた文字起こし済みコマンドを検証・実行する
// ブラウザ側の音声認識を使う構成のための入口
func (p *Pipeline) EvaluateCommand(ctx context.Context, command string) (*CycleResult, error) {
	if command == "" {
		return &CycleResult{
			Decision:     Decision{Valid: false, Reason: "コマンドが空です"},
			ResultSpoken: "No command detected.",
		}, nil
	}

	cycleCtx, err := p.begin(ctx, StateProcessing)
	if err != nil {
		return nil, err
	}
	defer p.clearCancel()

	result := &CycleResult{
		CycleID: uuid.New().String(),
		Command: command,
	}

	return p.processAndExecute(cycleCtx, command, p.visibleObjects(), result)
}

// Announce は可視オブジェクトの読み上げのみを行う
func (p *Pipeline) Announce(ctx context.Context) (string, []string, error) {
	objects := p.visibleObjects()
	spoken, err := p.announcer.AnnounceVisibleObjects(ctx, objects)
	return spoken, objects, err
}

// processAndExecute は検証と実行を行う（サイクルの後半部分）
func (p *Pipeline) processAndExecute(ctx context.Context, transcript string, objects []string, result *CycleResult) (*CycleResult, error) {
	// 検証（一時的な失敗は上限付きバックオフでリトライする）
	p.setState(StateProcessing)
	decision := p.validateWithRetry(ctx, transcript, objects)
	result.Decision = decision

	p.mu.Lock()
	p.lastCommand = transcript
	decisionCopy := decision
	p.lastDecision = &decisionCopy
	p.mu.Unlock()

	if !decision.Valid {
		result.ResultSpoken = fmt.Sprintf("Negative. %s", decision.Reason)
		p.setState(StateIdle)
		return result, nil
	}

	result.ResultSpoken = fmt.Sprintf("Confirmed. Locking on to target: %s.", decision.Target)

	// 実行：所有権の取得に成功した場合のみトリガーを発行する
	p.setState(StateExecuting)
	if err := p.resources.Acquire(ctx, arbiter.OwnerRobot); err != nil {
		p.fail(ctx, fmt.Errorf("カメラ所有権の取得に失敗: %w", err))
		return result, err
	}

	if err := p.robot.Trigger(decision.Target); err != nil {
		// トリガーに失敗した場合は所有権を残さない
		p.resources.ForceRelease()
		p.fail(ctx, fmt.Errorf("トリガーの発行に失敗: %w", err))
		return result, err
	}

	log.Printf("[VOICE] ピックを指示しました (target: %s)", decision.Target)

	// ピックの完了は待たない：所有権の返却はブリッジのライフサイクルが駆動する
	p.setState(StateIdle)
	return result, nil
}

// validateWithRetry は検証を上限付き指数バックオフでリトライする
// 使い切った場合はエラーを伝播せず、無効判定を合成して返す
func (p *Pipeline) validateWithRetry(ctx context.Context, transcript string, objects []string) Decision {
	operation := func() (Decision, error) {
		return p.validator.ValidateCommand(ctx, transcript, objects)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = p.opts.RetryInterval
	policy.RandomizationFactor = 0
	policy.Multiplier = 2

	decision, err := backoff.RetryWithData(
		operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, uint64(p.opts.MaxAttempts-1)), ctx),
	)
	if err != nil {
		log.Printf("[VOICE] %v: %v", ErrValidationUnavailable, err)
		return Decision{
			Valid:  false,
			Target: "",
			Reason: "validation unavailable",
		}
	}

	return decision
}

// EmergencyReset は緊急リセットを行う
// 進行中の外部呼び出しを中断し、ブリッジを強制停止し、所有権をビジョンへ戻す
// どの状態から何度呼んでも安全
func (p *Pipeline) EmergencyReset() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	if err := p.robot.Stop(p.opts.StopGrace); err != nil {
		log.Printf("[VOICE] 緊急リセット中のプロセス停止に失敗: %v", err)
	}

	p.resources.ForceRelease()
	p.setState(StateIdle)

	log.Printf("[VOICE] 緊急リセットを実行しました")
}

// State は現在のパイプライン状態を返す
func (p *Pipeline) State() PipelineState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// LastCommand は直近のコマンドを返す
func (p *Pipeline) LastCommand() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastCommand
}

// LastDecision は直近の判定のコピーを返す（なければnil）
func (p *Pipeline) LastDecision() *Decision {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.lastDecision == nil {
		return nil
	}
	decision := *p.lastDecision
	return &decision
}

// begin はサイクルを開始する
// 既に別のサイクルが進行中の場合はエラーを返す
func (p *Pipeline) begin(ctx context.Context, initial PipelineState) (context.Context, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateIdle {
		return nil, fmt.Errorf("別のサイクルが進行中です（状態: %s）", p.state)
	}

	cycleCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.state = initial
	return cycleCtx, nil
}

// clearCancel は進行中サイクルのキャンセル関数を破棄する
func (p *Pipeline) clearCancel() {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.mu.Unlock()
}

// fail はエラー状態へ遷移し、表示時間の経過後に Idle へ戻す
// 緊急リセットでキャンセルされた場合はそのまま Idle にする
func (p *Pipeline) fail(ctx context.Context, err error) {
	log.Printf("[VOICE] サイクルが失敗しました: %v", err)

	if ctx.Err() != nil {
		p.setState(StateIdle)
		return
	}

	p.setState(StateError)

	delay := p.opts.ErrorDisplayDelay
	time.AfterFunc(delay, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.state == StateError {
			p.state = StateIdle
		}
	})
}

// setState はパイプライン状態を設定する
func (p *Pipeline) setState(state PipelineState) {
	p.mu.Lock()
	p.state = state
	p.mu.Unlock()
}
