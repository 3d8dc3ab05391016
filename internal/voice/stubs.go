package voice

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// ConsoleAnnouncer はTTSサービス未接続時の Announcer 実装
// 読み上げの代わりにログへ出力する
type ConsoleAnnouncer struct{}

// AnnounceVisibleObjects はオブジェクト一覧を組み立ててログに出力する
func (ConsoleAnnouncer) AnnounceVisibleObjects(_ context.Context, objects []string) (string, error) {
	list := "nothing"
	if len(objects) > 0 {
		list = strings.Join(objects, ", ")
	}

	prompt := fmt.Sprintf("Scanners active. I see %s. Say pick the, then the object name.", list)
	log.Printf("[VOICE] %s", prompt)
	return prompt, nil
}

// NullSpeechCapturer はマイク未接続時の SpeechCapturer 実装
// 常に空の文字起こしを返す（パイプラインはコマンドなしとして扱う）
type NullSpeechCapturer struct{}

// CaptureSpeech は常に空文字列を返す
func (NullSpeechCapturer) CaptureSpeech(_ context.Context, _ int) (string, error) {
	return "", nil
}

// KeywordValidator は外部の検証サービス未接続時の CommandValidator 実装
//
// 可視オブジェクト名がコマンドに含まれていれば有効と判定する。
// 明示的な拒否語（no / stop / cancel / nevermind）は無効と判定する。
type KeywordValidator struct{}

// ValidateCommand はキーワード一致でコマンドを判定する
func (KeywordValidator) ValidateCommand(_ context.Context, transcript string, whitelist []string) (Decision, error) {
	command := strings.ToLower(strings.TrimSpace(transcript))
	if command == "" {
		return Decision{Valid: false, Reason: "No command detected."}, nil
	}

	for _, word := range []string{"no", "stop", "cancel", "nevermind"} {
		if command == word {
			return Decision{Valid: false, Reason: "Command cancelled by operator."}, nil
		}
	}

	for _, object := range whitelist {
		if strings.Contains(command, strings.ToLower(object)) {
			return Decision{
				Valid:  true,
				Target: strings.ToLower(object),
				Reason: fmt.Sprintf("Target acquired: %s", strings.ToLower(object)),
			}, nil
		}
	}

	return Decision{Valid: false, Reason: "No visible target named in command."}, nil
}
