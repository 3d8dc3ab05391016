package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"scrapple/internal/arbiter"
	"scrapple/internal/camera"
	"scrapple/internal/config"
	"scrapple/internal/generated"
	"scrapple/internal/robot"
	"scrapple/internal/stream"
	"scrapple/internal/vision"
	"scrapple/internal/voice"
)

// Server はHTTPサーバーと各コンポーネントを管理する構造体
type Server struct {
	config     *config.Config
	httpServer *http.Server
	engine     *gin.Engine

	loop     *vision.Loop
	cache    *vision.Cache
	mux      *stream.Multiplexer
	arbiter  *arbiter.Arbiter
	bridge   *robot.Bridge
	pipeline *voice.Pipeline
}

// New は新しいServerインスタンスを作成する
// 推論ループ・調停器・ブリッジ・音声パイプラインをここで組み立てる
func New(cfg *config.Config) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	// フレーム源と検出キャッシュ
	source := camera.NewV4L2Source(cfg.Camera.Device, cfg.Camera.Width, cfg.Camera.Height, cfg.Camera.FPS)
	cache := vision.NewCache(cfg.Vision.StaleAfter)
	mux := stream.NewMultiplexer()

	// 検出器は外部コラボレータ（モデル未接続時は何も検出しない）
	loop := vision.NewLoop(source, vision.NopDetector{}, cache, mux, vision.Options{
		DetectEvery:       cfg.Vision.DetectEvery,
		OpenRetries:       cfg.Vision.OpenRetries,
		OpenRetryInterval: cfg.Vision.OpenRetryInterval,
	})

	// カメラ所有権の調停器（初期所有者はビジョン側）
	arb := arbiter.New(loop, cfg.Robot.AcquireTimeout)

	// 制御プロセスのブリッジ
	// クラッシュ検知時は所有権をビジョン側へ自動返却する
	bridge := robot.NewBridge(
		cfg.Robot.Command,
		cfg.Robot.TriggerPath,
		arb.CurrentOwner,
		func() error { return arb.Release(arbiter.OwnerRobot) },
	)

	// 音声パイプライン
	// 可視オブジェクトは検出キャッシュ由来、空ならデフォルト一覧を使う
	visibleObjects := func() []string {
		if labels := cache.Labels(); len(labels) > 0 {
			return labels
		}
		return cfg.Vision.DefaultObjects
	}

	pipeline := voice.NewPipeline(
		voice.ConsoleAnnouncer{},
		voice.NullSpeechCapturer{},
		voice.KeywordValidator{},
		&arbiterResources{arb: arb},
		&bridgeTrigger{bridge: bridge},
		visibleObjects,
		voice.Options{
			RecordSeconds:     cfg.Voice.RecordSeconds,
			MaxAttempts:       cfg.Voice.MaxRetries,
			RetryInterval:     cfg.Voice.RetryInterval,
			ErrorDisplayDelay: cfg.Voice.ErrorDisplayDelay,
			StopGrace:         cfg.Robot.GraceTimeout,
		},
	)

	srv := &Server{
		config:   cfg,
		engine:   engine,
		loop:     loop,
		cache:    cache,
		mux:      mux,
		arbiter:  arb,
		bridge:   bridge,
		pipeline: pipeline,
		httpServer: &http.Server{
			Addr:         cfg.ServerAddress(),
			Handler:      engine,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}

	srv.setupRoutes()
	return srv
}

// setupRoutes はHTTPルートを設定する
func (s *Server) setupRoutes() {
	handler := &ScrappleHandler{
		config:   s.config,
		cache:    s.cache,
		loop:     s.loop,
		mux:      s.mux,
		arbiter:  s.arbiter,
		bridge:   s.bridge,
		pipeline: s.pipeline,
	}

	generated.RegisterHandlers(s.engine, handler)

	// 静的ファイル（操作パネル）
	s.engine.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", getIndexHTML())
	})
}

// Start はサーバーを起動する
// バックグラウンドの推論ループとプレースホルダ配信もここで開始する
func (s *Server) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// 推論ループとプレースホルダ配信を開始
	go s.loop.Run(runCtx)
	go s.mux.Run(runCtx)

	// シャットダウン用のチャンネル
	shutdownCh := make(chan error, 1)

	// サーバーを別ゴルーチンで起動
	go func() {
		log.Printf("HTTPサーバーを起動しています: %s", s.config.ServerAddress())
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			shutdownCh <- fmt.Errorf("サーバーの起動に失敗: %w", err)
		}
	}()

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// コンテキストかシグナルを待つ
	select {
	case <-ctx.Done():
		log.Println("コンテキストがキャンセルされました")
	case sig := <-sigCh:
		log.Printf("シグナルを受信しました: %v", sig)
	case err := <-shutdownCh:
		return err
	}

	// グレースフルシャットダウン
	return s.Shutdown()
}

// Shutdown はサーバーをグレースフルにシャットダウンする
// 制御プロセスが動いていれば先に停止させる
func (s *Server) Shutdown() error {
	log.Println("サーバーをシャットダウンしています...")

	if err := s.bridge.Stop(s.config.Robot.GraceTimeout); err != nil {
		log.Printf("制御プロセスの停止に失敗: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("サーバーのシャットダウンに失敗: %w", err)
	}

	log.Println("サーバーが正常にシャットダウンされました")
	return nil
}

// arbiterResources は voice.ResourceAcquirer を調停器で実装する
type arbiterResources struct {
	arb *arbiter.Arbiter
}

func (r *arbiterResources) Acquire(ctx context.Context, owner arbiter.Owner) error {
	return r.arb.Acquire(ctx, owner)
}

func (r *arbiterResources) ForceRelease() {
	r.arb.ForceRelease()
}

// bridgeTrigger は voice.RobotTrigger をブリッジで実装する
type bridgeTrigger struct {
	bridge *robot.Bridge
}

func (t *bridgeTrigger) Trigger(target string) error {
	return t.bridge.Trigger(target)
}

func (t *bridgeTrigger) Stop(graceTimeout time.Duration) error {
	return t.bridge.Stop(graceTimeout)
}
