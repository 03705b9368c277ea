// Package server は、撮影パイプラインをHTTPで操作するサーバーを提供します。
//
// このパッケージは、HTTPサーバーの起動、ルーティング、
// プレビューのMJPEG配信、撮影とフォトライブラリの参照を担当します。
//
// 責務:
//   - HTTPサーバーの起動と管理
//   - プレビュー映像のMJPEG配信
//   - カメラ切り替えと撮影リクエストの受け付け
//   - 保存済みアセットの一覧と画像の配信
//   - メトリクスの公開
//
// 仕様:
//   - ルーティングはginを使用
//   - パイプラインの操作はすべてsession.Controllerに委譲する
//   - エラーは種別ごとにErrorResponseとして返す
//   - グレースフルシャットダウンに対応
package server
