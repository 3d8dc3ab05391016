// Package camera は物理カメラデバイスの取得と解放を担う
//
// # 責務
// - V4L2デバイスからのリアルタイムJPEGフレーム取得
// - カメラハンドルの状態管理（Closed / Open / Paused）
// - 一時解放（Paused）と再取得のサポート
// - デバイスの利用可能性チェック
//
// # 使い分け
// このパッケージは以下の場合に使用する：
// - カメラからJPEGフレームをストリーミングしたい
// - 外部プロセスにカメラを明け渡すため一時的にデバイスを解放したい
//
// # 仕様
// - Source: フレーム供給源の統一インターフェース
// - V4L2Source: ffmpeg経由の実デバイス実装
// - MockSource: テスト用の合成フレーム実装
// - フレームチャンネルは満杯時に古いフレームを破棄する（送信側をブロックしない）
//
// # 前提要件
//   - v4l-utils: デバイスの利用可能性チェックに使用
//     Ubuntu/Debian: sudo apt install v4l-utils
//   - ffmpeg: 画像キャプチャとストリーミングに使用
//     Ubuntu/Debian: sudo apt install ffmpeg
//   - videoグループへの参加: デバイスアクセス権限
//     sudo usermod -a -G video $USER
package camera
