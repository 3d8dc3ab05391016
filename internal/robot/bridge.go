package robot

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"scrapple/internal/arbiter"
)

// eventBuffer はイベントチャンネルのバッファ数
const eventBuffer = 64

// Bridge は外部のロボット制御プロセスを監督する
//
// Trigger はトリガーレコードの上書きと stdin への直接シグナルを
// 1回の呼び出しで行う。プロセスの予期しない終了を検知した場合は
// カメラ所有権をビジョン側へ自動返却する。
type Bridge struct {
	command     []string
	triggerPath string

	// 所有権の確認と返却（arbiterへの依存を関数に絞る）
	currentOwner func() arbiter.Owner
	release      func() error

	mu         sync.Mutex
	state      State
	pid        int
	startedAt  time.Time
	lastTarget string
	cmd        *exec.Cmd
	stdin      io.WriteCloser
	done       chan struct{}

	events chan Event
}

// NewBridge は新しいBridgeを作成する
func NewBridge(command []string, triggerPath string, currentOwner func() arbiter.Owner, release func() error) *Bridge {
	return &Bridge{
		command:      command,
		triggerPath:  triggerPath,
		currentOwner: currentOwner,
		release:      release,
		state:        StateStopped,
		events:       make(chan Event, eventBuffer),
	}
}

// Start は制御プロセスを起動する
// 既に起動している場合は ErrAlreadyRunning を返す
func (b *Bridge) Start() error {
	b.mu.Lock()

	if b.state != StateStopped {
		state := b.state
		b.mu.Unlock()
		return fmt.Errorf("%w（現在の状態: %s）", ErrAlreadyRunning, state)
	}

	if len(b.command) == 0 {
		b.mu.Unlock()
		return fmt.Errorf("%w: 起動コマンドが設定されていません", ErrProcessStartFailure)
	}

	b.state = StateStarting
	b.mu.Unlock()

	cmd := exec.Command(b.command[0], b.command[1:]...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		b.setState(StateStopped)
		return fmt.Errorf("%w: stdinパイプの作成に失敗: %v", ErrProcessStartFailure, err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		b.setState(StateStopped)
		return fmt.Errorf("%w: stdoutパイプの作成に失敗: %v", ErrProcessStartFailure, err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		b.setState(StateStopped)
		return fmt.Errorf("%w: stderrパイプの作成に失敗: %v", ErrProcessStartFailure, err)
	}

	if err := cmd.Start(); err != nil {
		b.setState(StateStopped)
		return fmt.Errorf("%w: %v", ErrProcessStartFailure, err)
	}

	done := make(chan struct{})

	b.mu.Lock()
	b.cmd = cmd
	b.stdin = stdin
	b.pid = cmd.Process.Pid
	b.startedAt = time.Now()
	b.state = StateRunning
	b.done = done
	b.mu.Unlock()

	log.Printf("[ROBOT] 制御プロセスを起動しました (PID: %d)", cmd.Process.Pid)
	b.emit(EventStatusChange, string(StateRunning))

	// 出力排出とプロセス監視を開始
	var readers sync.WaitGroup
	readers.Add(2)
	go b.drainOutput(stdout, &readers)
	go b.drainOutput(stderr, &readers)
	go b.supervise(cmd, &readers, done)

	return nil
}

// Trigger はピック要求を発行する
// トリガーレコードを上書きし、プロセスが動作中なら stdin へ改行を送る
func (b *Bridge) Trigger(target string) error {
	// カメラ所有権の確認が取れるまでトリガーは発行しない
	if b.currentOwner() != arbiter.OwnerRobot {
		return fmt.Errorf("%w: カメラ所有権がロボット側にありません", arbiter.ErrOwnershipConflict)
	}

	// 永続レコードを先に書く（独立した消費者が観測できる経路）
	record := TriggerRecord{Target: target, Timestamp: time.Now()}
	if err := WriteTriggerRecord(b.triggerPath, record); err != nil {
		return err
	}

	b.mu.Lock()
	b.lastTarget = target
	running := b.state == StateRunning
	stdin := b.stdin
	b.mu.Unlock()

	// 動作中のプロセスには直接シグナル（改行）で低遅延に通知する
	if running && stdin != nil {
		if _, err := io.WriteString(stdin, "\n"); err != nil {
			log.Printf("[ROBOT] 直接シグナルの送信に失敗: %v", err)
		} else {
			log.Printf("[ROBOT] 直接シグナルを送信しました (target: %s)", target)
		}
	} else {
		log.Printf("[ROBOT] セッション未起動のためレコードのみ書き込みました (target: %s)", target)
	}

	b.emit(EventStatusChange, fmt.Sprintf("trigger: %s", target))
	return nil
}

// Stop は制御プロセスを停止する
// graceTimeout 以内に終了しない場合は強制終了にエスカレーションする
// プロセスが存在しない場合は何もしない（冪等）
func (b *Bridge) Stop(graceTimeout time.Duration) error {
	b.mu.Lock()

	switch b.state {
	case StateStopped:
		b.mu.Unlock()
		return nil
	case StateCrashed:
		// クラッシュ後の後始末：レコードをリセットする
		b.resetLocked()
		b.mu.Unlock()
		b.emit(EventStatusChange, string(StateStopped))
		return nil
	}

	b.state = StateStopping
	cmd := b.cmd
	stdin := b.stdin
	done := b.done
	b.mu.Unlock()

	if done == nil {
		// 起動途中で監視がまだ始まっていない
		b.mu.Lock()
		b.resetLocked()
		b.mu.Unlock()
		return nil
	}

	b.emit(EventStatusChange, string(StateStopping))

	// 正常停止を促す：stdinを閉じてSIGTERMを送る
	if stdin != nil {
		_ = stdin.Close()
	}
	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Signal(syscall.SIGTERM)
	}

	select {
	case <-done:
		// 猶予内に終了した
	case <-time.After(graceTimeout):
		log.Printf("[ROBOT] 猶予時間内に終了しなかったため強制終了します")
		if cmd != nil && cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		<-done
	}

	b.mu.Lock()
	b.resetLocked()
	b.mu.Unlock()

	log.Printf("[ROBOT] 制御プロセスを停止しました")
	b.emit(EventStatusChange, string(StateStopped))
	return nil
}

// Status は現在の状態スナップショットを返す
// プロセスI/Oを待たずに即座に返る
func (b *Bridge) Status() Record {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Record{
		State:      b.state,
		PID:        b.pid,
		StartedAt:  b.startedAt,
		LastTarget: b.lastTarget,
	}
}

// LastTarget は直近のトリガー対象を返す
func (b *Bridge) LastTarget() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastTarget
}

// Events はブリッジのイベントストリームを返す
func (b *Bridge) Events() <-chan Event {
	return b.events
}

// supervise はプロセスの終了を監視する
// 予期しない終了を検知した場合はカメラ所有権を自動返却する
func (b *Bridge) supervise(cmd *exec.Cmd, readers *sync.WaitGroup, done chan struct{}) {
	// パイプの読み取りが終わってから Wait する
	readers.Wait()
	err := cmd.Wait()

	b.mu.Lock()
	expected := b.state == StateStopping
	if expected {
		b.state = StateStopped
	} else {
		b.state = StateCrashed
	}
	b.mu.Unlock()

	close(done)

	if expected {
		return
	}

	log.Printf("[ROBOT] 制御プロセスが予期せず終了しました: %v", err)
	b.emit(EventStatusChange, string(StateCrashed))

	// カメラ所有権がロボット側に残されたままにしない（必須の不変条件）
	if b.currentOwner() == arbiter.OwnerRobot {
		if releaseErr := b.release(); releaseErr != nil {
			log.Printf("[ROBOT] 所有権の返却に失敗: %v", releaseErr)
		} else {
			log.Printf("[ROBOT] カメラ所有権をビジョン側へ返却しました")
		}
	}
}

// drainOutput はプロセス出力をイベントストリームへ排出する
func (b *Bridge) drainOutput(r io.Reader, readers *sync.WaitGroup) {
	defer readers.Done()

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		log.Printf("[ROBOT OUTPUT] %s", line)
		b.emit(EventOutput, line)
	}
}

// emit はイベントを送信する
// チャンネルが満杯の場合は古いイベントを破棄する（プロセス側をブロックしない）
func (b *Bridge) emit(eventType EventType, payload string) {
	event := Event{
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	select {
	case b.events <- event:
	default:
		select {
		case <-b.events:
		default:
		}
		select {
		case b.events <- event:
		default:
		}
	}
}

// setState は状態を設定する
func (b *Bridge) setState(state State) {
	b.mu.Lock()
	b.state = state
	b.mu.Unlock()
}

// resetLocked はプロセス情報を初期状態に戻す（ロック済み前提）
func (b *Bridge) resetLocked() {
	b.state = StateStopped
	b.cmd = nil
	b.stdin = nil
	b.pid = 0
	b.startedAt = time.Time{}
}
