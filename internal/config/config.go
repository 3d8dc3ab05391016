package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Server ServerConfig `yaml:"server"`
	Camera CameraConfig `yaml:"camera"`
	Vision VisionConfig `yaml:"vision"`
	Robot  RobotConfig  `yaml:"robot"`
	Voice  VoiceConfig  `yaml:"voice"`
}

// ServerConfig はHTTPサーバーの設定
type ServerConfig struct {
	Host string `yaml:"host"` // リッスンするホスト
	Port int    `yaml:"port"` // リッスンするポート番号

	// タイムアウト設定
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // 読み込みタイムアウト
	WriteTimeout time.Duration `yaml:"write_timeout"` // 書き込みタイムアウト
}

// CameraConfig はカメラデバイスの設定
type CameraConfig struct {
	Device string `yaml:"device"` // デバイスパス (例: /dev/video0)
	FPS    int    `yaml:"fps"`    // フレームレート
	Width  int    `yaml:"width"`  // 画像幅
	Height int    `yaml:"height"` // 画像高さ
}

// VisionConfig は推論ループの設定
type VisionConfig struct {
	// 何フレームごとに検出を実行するか（それ以外のフレームは前回の結果を再掲する）
	DetectEvery int `yaml:"detect_every"`

	// 検出結果がこの時間より古くなると stale 扱いになる
	StaleAfter time.Duration `yaml:"stale_after"`

	// カメラオープン失敗時のリトライ設定
	OpenRetries       int           `yaml:"open_retries"`
	OpenRetryInterval time.Duration `yaml:"open_retry_interval"`

	// 検出が利用できない場合に使うデフォルトの可視オブジェクト一覧
	DefaultObjects []string `yaml:"default_objects"`
}

// RobotConfig はロボット制御プロセスの設定
type RobotConfig struct {
	// 外部制御プロセスの起動コマンド（先頭が実行ファイル、残りが引数）
	Command []string `yaml:"command"`

	// トリガーレコードの書き込み先ファイルパス
	TriggerPath string `yaml:"trigger_path"`

	// カメラ所有権の取得待ちタイムアウト
	AcquireTimeout time.Duration `yaml:"acquire_timeout"`

	// 正常停止を待つ猶予時間（超過すると強制終了）
	GraceTimeout time.Duration `yaml:"grace_timeout"`
}

// VoiceConfig は音声パイプラインの設定
type VoiceConfig struct {
	// マイク録音の待ち受け秒数
	RecordSeconds int `yaml:"record_seconds"`

	// コマンド検証のリトライ設定
	MaxRetries    int           `yaml:"max_retries"`
	RetryInterval time.Duration `yaml:"retry_interval"`

	// エラー状態を表示したままにする時間（経過後 Idle に戻る）
	ErrorDisplayDelay time.Duration `yaml:"error_display_delay"`
}

// Load は設定を読み込む
// CONFIG_PATH が指す YAML ファイルがあれば読み込み、環境変数で上書きする
func Load() (*Config, error) {
	cfg := defaultConfig()

	// YAMLファイルからの読み込み（任意）
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("設定ファイルの解析に失敗: %w", err)
		}
	}

	// 環境変数による上書き
	cfg.Server.Host = getEnvOrDefault("SERVER_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvAsIntOrDefault("PORT", cfg.Server.Port)
	cfg.Camera.Device = getEnvOrDefault("CAMERA_DEVICE", cfg.Camera.Device)
	cfg.Robot.TriggerPath = getEnvOrDefault("TRIGGER_PATH", cfg.Robot.TriggerPath)

	// 設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

// defaultConfig はデフォルト設定を返す
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 0, // ストリーミング用にタイムアウト無効化
		},
		Camera: CameraConfig{
			Device: "/dev/video0",
			FPS:    15,
			Width:  1280,
			Height: 720,
		},
		Vision: VisionConfig{
			DetectEvery:       3,
			StaleAfter:        2 * time.Second,
			OpenRetries:       5,
			OpenRetryInterval: 2 * time.Second,
			DefaultObjects:    []string{"gear", "heart", "hotdog", "nut", "skull"},
		},
		Robot: RobotConfig{
			Command:        []string{},
			TriggerPath:    "robot_trigger.txt",
			AcquireTimeout: 2 * time.Second,
			GraceTimeout:   5 * time.Second,
		},
		Voice: VoiceConfig{
			RecordSeconds:     4,
			MaxRetries:        3,
			RetryInterval:     2 * time.Second,
			ErrorDisplayDelay: 3 * time.Second,
		},
	}
}

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("無効なポート番号: %d", c.Server.Port)
	}

	if c.Camera.Device == "" {
		return fmt.Errorf("カメラデバイスが設定されていません")
	}

	if c.Camera.FPS <= 0 || c.Camera.FPS > 60 {
		return fmt.Errorf("無効なFPS値: %d", c.Camera.FPS)
	}

	if c.Vision.DetectEvery < 1 {
		return fmt.Errorf("無効な検出間隔: %d", c.Vision.DetectEvery)
	}

	if c.Robot.TriggerPath == "" {
		return fmt.Errorf("トリガーレコードのパスが設定されていません")
	}

	if c.Robot.AcquireTimeout <= 0 {
		return fmt.Errorf("無効な所有権取得タイムアウト: %v", c.Robot.AcquireTimeout)
	}

	if c.Voice.MaxRetries < 0 {
		return fmt.Errorf("無効なリトライ回数: %d", c.Voice.MaxRetries)
	}

	return nil
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// getEnvOrDefault は環境変数を取得し、設定されていない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault は環境変数を整数として取得し、設定されていない場合はデフォルト値を返す
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}
