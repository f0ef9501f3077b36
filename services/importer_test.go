package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"imovel-importer/models"
	"imovel-importer/storage"
	"imovel-importer/utils"
)

func testLogger() *utils.Logger { return utils.NewLogger() }

func newImportStore() *storage.MemoryStore {
	return storage.NewMemoryStore(testOperations, testTypes)
}

func feedWith(items ...string) string {
	return "<Carga><Imoveis>" + strings.Join(items, "") + "</Imoveis></Carga>"
}

func saleItem(code string, price float64) string {
	return fmt.Sprintf(`<Imovel>
		<CodigoImovel>%s</CodigoImovel>
		<TipoImovel>Casa</TipoImovel>
		<PrecoVenda>%.2f</PrecoVenda>
		<Bairro>Centro</Bairro>
	</Imovel>`, code, price)
}

func TestImportExampleScenario(t *testing.T) {
	// Feed with codes 1001 (valid sale) and 1002 (no price at all).
	raw := feedWith(saleItem("1001", 500000), saleItem("1002", 0))
	importer := NewImporter(newImportStore(), testLogger())

	result := importer.ImportFeed(context.Background(), raw, "user-1", 0)

	if result.Total != 2 || result.Imported != 1 || result.Duplicates != 0 {
		t.Errorf("result = %+v; want total 2, imported 1, duplicates 0", result)
	}
	if len(result.Errors) != 1 || result.Errors[0] != "Imóvel 1002: Sem valor definido." {
		t.Errorf("Errors = %v; want the exact price-gate message", result.Errors)
	}
}

func TestImportIdempotence(t *testing.T) {
	raw := feedWith(saleItem("2001", 100000), saleItem("2002", 200000), saleItem("2003", 300000))
	store := newImportStore()
	importer := NewImporter(store, testLogger())
	ctx := context.Background()

	first := importer.ImportFeed(ctx, raw, "user-1", 0)
	if first.Imported != 3 || first.Duplicates != 0 {
		t.Fatalf("first run = %+v; want 3 imported, 0 duplicates", first)
	}

	second := importer.ImportFeed(ctx, raw, "user-1", 0)
	if second.Imported != 0 || second.Duplicates != 3 {
		t.Errorf("second run = %+v; want 0 imported, 3 duplicates", second)
	}
	if len(store.Listings) != 3 {
		t.Errorf("store holds %d listings after re-run; want 3", len(store.Listings))
	}

	// Same feed for another user is not a duplicate.
	other := importer.ImportFeed(ctx, raw, "user-2", 0)
	if other.Imported != 3 {
		t.Errorf("other user's run = %+v; want 3 imported", other)
	}
}

func TestImportRepeatedCodeWithinFeed(t *testing.T) {
	raw := feedWith(saleItem("6001", 100000), saleItem("6001", 250000), saleItem("6002", 300000))
	store := newImportStore()
	importer := NewImporter(store, testLogger())

	result := importer.ImportFeed(context.Background(), raw, "user-1", 0)

	if result.Imported != 2 || result.Duplicates != 1 {
		t.Errorf("result = %+v; want 2 imported, 1 duplicate", result)
	}
	if len(store.Listings) != 2 {
		t.Fatalf("store holds %d listings; want 2", len(store.Listings))
	}
	// First occurrence wins.
	for _, l := range store.Listings {
		if l.ExternalCode == "6001" && l.SalePrice != 100000 {
			t.Errorf("SalePrice = %v; want the first occurrence's 100000", l.SalePrice)
		}
	}
}

func TestImportLimitTruncation(t *testing.T) {
	raw := feedWith(saleItem("3001", 1), saleItem("3002", 2), saleItem("3003", 3), saleItem("3004", 4))
	store := newImportStore()
	importer := NewImporter(store, testLogger())

	result := importer.ImportFeed(context.Background(), raw, "user-1", 2)

	if result.Total != 2 || result.Imported != 2 {
		t.Fatalf("result = %+v; want total 2, imported 2", result)
	}
	// Order-preserving: the first two items survive.
	codes := map[string]bool{}
	for _, l := range store.Listings {
		codes[l.ExternalCode] = true
	}
	if !codes["3001"] || !codes["3002"] || codes["3003"] || codes["3004"] {
		t.Errorf("persisted codes = %v; want exactly 3001 and 3002", codes)
	}
}

func TestImportUnknownFormat(t *testing.T) {
	importer := NewImporter(newImportStore(), testLogger())

	result := importer.ImportFeed(context.Background(), "not a feed at all", "user-1", 0)

	if result.Imported != 0 || result.Total != 0 {
		t.Errorf("result = %+v; want nothing imported", result)
	}
	if len(result.Errors) != 1 || result.Errors[0] != "Formato de arquivo não suportado." {
		t.Errorf("Errors = %v; want the unsupported-format message", result.Errors)
	}
}

func TestImportEmptyFeed(t *testing.T) {
	importer := NewImporter(newImportStore(), testLogger())

	// Valid markers but every item is unusable (no external code).
	raw := feedWith(`<Imovel><TipoImovel>Casa</TipoImovel></Imovel>`)
	result := importer.ImportFeed(context.Background(), raw, "user-1", 0)

	if len(result.Errors) != 1 || result.Errors[0] != "Nenhum imóvel encontrado no arquivo." {
		t.Errorf("Errors = %v; want the empty-feed message", result.Errors)
	}
}

func TestImportBatchFailureIsFatal(t *testing.T) {
	raw := feedWith(saleItem("4001", 100), saleItem("4002", 200))
	store := newImportStore()
	store.InsertErr = errors.New("connection reset")
	importer := NewImporter(store, testLogger())

	result := importer.ImportFeed(context.Background(), raw, "user-1", 0)

	if result.Imported != 0 {
		t.Errorf("Imported = %d after batch failure; want 0", result.Imported)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "connection reset") {
		t.Errorf("Errors = %v; want one fatal batch error", result.Errors)
	}
	if len(store.Listings) != 0 {
		t.Errorf("store holds %d listings after failed batch; want 0", len(store.Listings))
	}
}

func TestImportStagesTaxonomyAndPhotos(t *testing.T) {
	raw := feedWith(`<Imovel>
		<CodigoImovel>5001</CodigoImovel>
		<TipoImovel>Cobertura Duplex</TipoImovel>
		<CodigoCategoria>4</CodigoCategoria>
		<PrecoLocacao>2500</PrecoLocacao>
		<Fotos>
			<Foto><URLArquivo>http://x/1.jpg</URLArquivo><Principal>1</Principal></Foto>
			<Foto><URLArquivo>http://x/2.jpg</URLArquivo></Foto>
		</Fotos>
	</Imovel>`)
	store := newImportStore()
	importer := NewImporter(store, testLogger())

	result := importer.ImportFeed(context.Background(), raw, "user-1", 0)
	if result.Imported != 1 {
		t.Fatalf("result = %+v; want 1 imported", result)
	}

	l := store.Listings[0]
	if l.OperationID != 2 {
		t.Errorf("OperationID = %d; want 2 (locacao)", l.OperationID)
	}
	// "Cobertura Duplex" has no taxonomy match; the first property type wins.
	if l.PropertyTypeID != 10 {
		t.Errorf("PropertyTypeID = %d; want first-row fallback 10", l.PropertyTypeID)
	}
	if l.Photos != "http://x/1.jpg,http://x/2.jpg" {
		t.Errorf("Photos = %q; want cover first, joined in order", l.Photos)
	}
	if l.Status != models.StatusDraft {
		t.Errorf("Status = %q; want draft", l.Status)
	}
	if !strings.Contains(l.Notes, "Cobertura Duplex") {
		t.Errorf("Notes = %q; want the vendor's original type text preserved", l.Notes)
	}
}
