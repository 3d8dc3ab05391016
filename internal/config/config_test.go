package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestConfigLoad はデフォルト設定の読み込みをテストする
func TestConfigLoad(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("デフォルトポートが異なります: got %d, want 8080", cfg.Server.Port)
	}
	if cfg.Camera.Device != "/dev/video0" {
		t.Errorf("デフォルトデバイスが異なります: got %s", cfg.Camera.Device)
	}
	if cfg.Vision.DetectEvery != 3 {
		t.Errorf("デフォルト検出間隔が異なります: got %d, want 3", cfg.Vision.DetectEvery)
	}
	if len(cfg.Vision.DefaultObjects) != 5 {
		t.Errorf("デフォルトオブジェクト数が異なります: got %d, want 5", len(cfg.Vision.DefaultObjects))
	}
	if cfg.Robot.AcquireTimeout != 2*time.Second {
		t.Errorf("デフォルト取得タイムアウトが異なります: got %v", cfg.Robot.AcquireTimeout)
	}
}

// TestConfigLoadFromFile はYAMLファイルからの読み込みをテストする
func TestConfigLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9090
camera:
  device: /dev/video2
robot:
  command: ["python3", "control.py"]
  trigger_path: /tmp/trigger.txt
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("テストファイルの作成に失敗しました: %v", err)
	}

	os.Setenv("CONFIG_PATH", path)
	defer os.Unsetenv("CONFIG_PATH")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("ポートが上書きされていません: got %d, want 9090", cfg.Server.Port)
	}
	if cfg.Camera.Device != "/dev/video2" {
		t.Errorf("デバイスが上書きされていません: got %s", cfg.Camera.Device)
	}
	if len(cfg.Robot.Command) != 2 || cfg.Robot.Command[0] != "python3" {
		t.Errorf("起動コマンドが異なります: %v", cfg.Robot.Command)
	}

	// ファイルで指定しなかった値はデフォルトのまま
	if cfg.Vision.DetectEvery != 3 {
		t.Errorf("未指定の値がデフォルトから変わっています: got %d", cfg.Vision.DetectEvery)
	}
}

// TestConfigValidation は設定の検証をテストする
func TestConfigValidation(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "正常な設定",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "無効なポート番号",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: true,
		},
		{
			name:    "カメラデバイス未設定",
			mutate:  func(c *Config) { c.Camera.Device = "" },
			wantErr: true,
		},
		{
			name:    "無効なFPS",
			mutate:  func(c *Config) { c.Camera.FPS = 0 },
			wantErr: true,
		},
		{
			name:    "無効な検出間隔",
			mutate:  func(c *Config) { c.Vision.DetectEvery = 0 },
			wantErr: true,
		},
		{
			name:    "トリガーパス未設定",
			mutate:  func(c *Config) { c.Robot.TriggerPath = "" },
			wantErr: true,
		},
		{
			name:    "無効な取得タイムアウト",
			mutate:  func(c *Config) { c.Robot.AcquireTimeout = 0 },
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(cfg)

			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Error("検証エラーが期待されましたが成功しました")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("検証が失敗しました: %v", err)
			}
		})
	}
}

// TestServerAddress はサーバーアドレスの生成をテストする
func TestServerAddress(t *testing.T) {
	cfg := defaultConfig()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 9000

	if addr := cfg.ServerAddress(); addr != "127.0.0.1:9000" {
		t.Errorf("アドレスが異なります: got %s, want 127.0.0.1:9000", addr)
	}
}

// TestEnvironmentVariables は環境変数による上書きをテストする
func TestEnvironmentVariables(t *testing.T) {
	os.Setenv("PORT", "3000")
	os.Setenv("CAMERA_DEVICE", "/dev/video9")
	os.Setenv("TRIGGER_PATH", "/tmp/custom_trigger.txt")
	defer func() {
		os.Unsetenv("PORT")
		os.Unsetenv("CAMERA_DEVICE")
		os.Unsetenv("TRIGGER_PATH")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	if cfg.Server.Port != 3000 {
		t.Errorf("PORTが反映されていません: got %d, want 3000", cfg.Server.Port)
	}
	if cfg.Camera.Device != "/dev/video9" {
		t.Errorf("CAMERA_DEVICEが反映されていません: got %s", cfg.Camera.Device)
	}
	if cfg.Robot.TriggerPath != "/tmp/custom_trigger.txt" {
		t.Errorf("TRIGGER_PATHが反映されていません: got %s", cfg.Robot.TriggerPath)
	}
}
