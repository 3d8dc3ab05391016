// Package robot は外部のロボット制御プロセスのライフサイクルを監督する
//
// # 責務
// - 制御プロセスの起動・停止（猶予付き終了と強制終了へのエスカレーション）
// - ハイブリッド指令チャンネル：stdinへの直接シグナル＋永続トリガーレコード
// - プロセス出力のイベントストリームへの排出（プロセス側を決してブロックしない）
// - クラッシュ検知とカメラ所有権の自動返却
//
// # 仕様
// - 直接シグナルはブリッジがプロセスを所有している場合の低遅延経路
// - トリガーレコードはブリッジ外で起動された消費者がポーリングで同じ意図を
//   観測するための永続経路（上書きのみ、追記はしない）
// - 監督の失敗がカメラ所有権をロボット側に残したままにすることはない
package robot
