// Package session はカメラパイプラインの構成と実行を管理する
//
// 責務:
//   - 起動時のデバイス選択とパイプライン構成
//   - パイプラインの開始・停止
//   - 前面/背面カメラの切り替え
//   - 静止画撮影とフォトライブラリへの受け渡し
//
// 仕様:
//   - パイプラインの状態は直列キュー上のタスクでのみ読み書きする
//   - 構成の変更は必ずトランザクション内で行い、失敗時もコミットする
//   - 撮影結果はチャンネルに1件だけ送られ、その後クローズされる
package session
