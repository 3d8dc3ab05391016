// Package server は、HTTPサーバーと各コンポーネントの配線を管理します。
//
// このパッケージは、HTTPサーバーの起動、ルーティング、
// MJPEGストリーミング配信、静的ファイルの配信を担当します。
//
// 責務:
//   - HTTPサーバーの起動と管理
//   - 推論ループ・調停器・ブリッジ・音声パイプラインの組み立て
//   - MJPEGストリームの配信（multipart/x-mixed-replace）
//   - 静的ファイル（HTML/CSS/JS）の配信
//   - クライアントからのリクエスト処理
//
// 仕様:
//   - ルーティングはgin + internal/generatedのServerInterfaceを使用
//   - グレースフルシャットダウンに対応
//   - 複数クライアントの同時接続をサポート
package server
