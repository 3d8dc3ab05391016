package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"scrapple/internal/config"
)

// testConfig はテスト用の設定を作成する
func testConfig(t *testing.T, port int) *config.Config {
	t.Helper()

	return &config.Config{
		Server: config.ServerConfig{
			Host:         "127.0.0.1",
			Port:         port,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 0,
		},
		Camera: config.CameraConfig{
			Device: "/dev/null", // テスト用のダミーデバイス
			FPS:    15,
			Width:  1280,
			Height: 720,
		},
		Vision: config.VisionConfig{
			DetectEvery:       3,
			StaleAfter:        time.Second,
			OpenRetries:       1,
			OpenRetryInterval: 50 * time.Millisecond,
			DefaultObjects:    []string{"gear", "heart", "hotdog", "nut", "skull"},
		},
		Robot: config.RobotConfig{
			TriggerPath:    filepath.Join(t.TempDir(), "trigger.txt"),
			AcquireTimeout: 500 * time.Millisecond,
			GraceTimeout:   time.Second,
		},
		Voice: config.VoiceConfig{
			RecordSeconds:     1,
			MaxRetries:        1,
			RetryInterval:     10 * time.Millisecond,
			ErrorDisplayDelay: 100 * time.Millisecond,
		},
	}
}

// TestServerStartAndShutdown はサーバーの起動とシャットダウンをテストする
func TestServerStartAndShutdown(t *testing.T) {
	cfg := testConfig(t, 18090)

	// サーバーを作成
	srv := New(cfg)

	// テスト用のコンテキスト（タイムアウト付き）
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// サーバーを別ゴルーチンで起動
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	// サーバーが起動するまで少し待つ
	time.Sleep(100 * time.Millisecond)

	// コンテキストをキャンセルしてサーバーを停止
	cancel()

	// エラーチャンネルから結果を受信
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("サーバーの起動/停止でエラーが発生しました: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("サーバーの停止がタイムアウトしました")
	}
}

// TestServerEndpoints はサーバーのエンドポイントをテストする
func TestServerEndpoints(t *testing.T) {
	cfg := testConfig(t, 18091)

	// サーバーを作成
	srv := New(cfg)

	// テスト用のコンテキスト
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// サーバーを別ゴルーチンで起動
	go func() {
		_ = srv.Start(ctx)
	}()

	// サーバーが起動するまで待つ
	time.Sleep(500 * time.Millisecond)

	baseURL := fmt.Sprintf("http://%s", cfg.ServerAddress())

	// テストケース
	testCases := []struct {
		name           string
		method         string
		endpoint       string
		body           string
		expectedStatus int
	}{
		{"ルートエンドポイント", http.MethodGet, "/", "", http.StatusOK},
		{"ヘルスチェックエンドポイント", http.MethodGet, "/health", "", http.StatusOK},
		{"ステータスエンドポイント", http.MethodGet, "/api/status", "", http.StatusOK},
		{"検出スナップショット", http.MethodGet, "/api/detections", "", http.StatusOK},
		{"検出スナップショット（ラベル指定）", http.MethodGet, "/api/detections?label=skull", "", http.StatusOK},
		{"ロボット状態", http.MethodGet, "/api/robot/status", "", http.StatusOK},
		{"次のピック対象（レコードなし）", http.MethodGet, "/api/arm/next", "", http.StatusOK},
		{"緊急リセット", http.MethodPost, "/api/kill", "", http.StatusOK},
		{"ピック要求（対象なし）", http.MethodPost, "/api/pick", `{}`, http.StatusBadRequest},
		{"読み上げ", http.MethodPost, "/api/voice/announce", "", http.StatusOK},
		{"セッション起動（コマンド未設定）", http.MethodPost, "/api/robot/start", "", http.StatusInternalServerError},
	}

	// 各エンドポイントをテスト
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var resp *http.Response
			var err error

			if tc.method == http.MethodGet {
				resp, err = http.Get(baseURL + tc.endpoint)
			} else {
				resp, err = http.Post(baseURL+tc.endpoint, "application/json",
					bytes.NewBufferString(tc.body))
			}
			if err != nil {
				t.Fatalf("HTTPリクエストでエラーが発生しました: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tc.expectedStatus {
				t.Errorf("予期しないステータスコード: got %d, want %d",
					resp.StatusCode, tc.expectedStatus)
			}
		})
	}
}

// TestServerStatusPayload はステータスレスポンスの内容をテストする
func TestServerStatusPayload(t *testing.T) {
	cfg := testConfig(t, 18092)
	srv := New(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = srv.Start(ctx)
	}()

	time.Sleep(500 * time.Millisecond)

	resp, err := http.Get(fmt.Sprintf("http://%s/api/status", cfg.ServerAddress()))
	if err != nil {
		t.Fatalf("HTTPリクエストでエラーが発生しました: %v", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Status   string `json:"status"`
		Owner    string `json:"owner"`
		Pipeline string `json:"pipeline"`
		Robot    struct {
			State string `json:"state"`
		} `json:"robot"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("レスポンスの解析に失敗しました: %v", err)
	}

	if payload.Status != "running" {
		t.Errorf("ステータスが異なります: got %s, want running", payload.Status)
	}
	if payload.Owner != "vision" {
		t.Errorf("初期所有者が異なります: got %s, want vision", payload.Owner)
	}
	if payload.Pipeline != "idle" {
		t.Errorf("初期パイプライン状態が異なります: got %s, want idle", payload.Pipeline)
	}
	if payload.Robot.State != "stopped" {
		t.Errorf("初期ロボット状態が異なります: got %s, want stopped", payload.Robot.State)
	}
}

// TestServerDetectionsPayload は検出レスポンスの内容をテストする
// カメラが使えない環境では空のstaleスナップショットが返ること
func TestServerDetectionsPayload(t *testing.T) {
	cfg := testConfig(t, 18093)
	srv := New(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = srv.Start(ctx)
	}()

	time.Sleep(500 * time.Millisecond)

	resp, err := http.Get(fmt.Sprintf("http://%s/api/detections", cfg.ServerAddress()))
	if err != nil {
		t.Fatalf("HTTPリクエストでエラーが発生しました: %v", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Detections []json.RawMessage `json:"detections"`
		Stale      bool              `json:"stale"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("レスポンスの解析に失敗しました: %v", err)
	}

	if len(payload.Detections) != 0 {
		t.Errorf("検出が含まれています: %d", len(payload.Detections))
	}
	if !payload.Stale {
		t.Error("未検出のスナップショットがstaleになっていません")
	}
}
