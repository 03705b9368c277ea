package library

import (
	"context"
	"errors"
	"testing"
)

func TestExporter_Export(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, WithPrompt(GrantPrompt))
	exporter := NewExporter(store)

	var saved *Asset
	exporter.OnSaved(func(asset *Asset) { saved = asset })

	asset, err := exporter.Export(ctx, testImage())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if saved == nil || saved.ID != asset.ID {
		t.Error("保存ハンドラが保存したアセットで呼ばれていません")
	}
}

func TestExporter_AuthorizationDenied(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, WithPrompt(DenyPrompt))
	exporter := NewExporter(store)

	called := false
	exporter.OnSaved(func(*Asset) { called = true })

	asset, err := exporter.Export(ctx, testImage())
	if !errors.Is(err, ErrAuthorizationDenied) {
		t.Fatalf("ErrAuthorizationDenied が期待されましたが %v でした", err)
	}
	if asset != nil {
		t.Error("拒否時にアセットが返されました")
	}
	if called {
		t.Error("拒否時に保存ハンドラが呼ばれました")
	}

	// 画像は破棄され、アセットは作成されない
	list, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("Expected 0 assets, got %d", len(list))
	}
}
