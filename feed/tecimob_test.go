package feed

import (
	"strings"
	"testing"

	"imovel-importer/utils"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<Carga>
  <Imoveis>
    <Imovel>
      <CodigoImovel>1001</CodigoImovel>
      <TipoImovel>Apartamento</TipoImovel>
      <CodigoCategoria>4</CodigoCategoria>
      <PrecoLocacao>1800.00</PrecoLocacao>
      <PrecoCondominio>450</PrecoCondominio>
      <Endereco>Rua das Flores</Endereco>
      <Numero>120</Numero>
      <Bairro>Centro</Bairro>
      <Cidade>Florianópolis</Cidade>
      <UF>SC</UF>
      <CEP>88010-100</CEP>
      <AreaUtil>75.5</AreaUtil>
      <QtdDormitorios>1</QtdDormitorios>
      <QtdVagas>1</QtdVagas>
      <Observacao>&lt;b&gt;Apartamento reformado&lt;/b&gt;&lt;br&gt;Vista para o mar</Observacao>
      <ArCondicionado>1</ArCondicionado>
      <Piscina>1</Piscina>
      <Churrasqueira>0</Churrasqueira>
      <Fotos>
        <Foto>
          <URLArquivo>http://fotos.example.com/a.jpg</URLArquivo>
          <Principal>0</Principal>
        </Foto>
        <Foto>
          <URLArquivo>http://fotos.example.com/b.jpg</URLArquivo>
          <Principal>1</Principal>
        </Foto>
        <Foto>
          <URLArquivo>http://fotos.example.com/c.jpg</URLArquivo>
        </Foto>
      </Fotos>
    </Imovel>
    <Imovel>
      <CodigoImovel>1002</CodigoImovel>
      <TipoImovel>Casa</TipoImovel>
      <PrecoVenda>abc</PrecoVenda>
      <Bairro>Trindade</Bairro>
      <Fotos>
        <Foto>
          <URLArquivo>http://fotos.example.com/d.jpg</URLArquivo>
        </Foto>
        <Foto>
          <URLArquivo>http://fotos.example.com/e.jpg</URLArquivo>
        </Foto>
      </Fotos>
    </Imovel>
    <Imovel>
      <TipoImovel>Terreno</TipoImovel>
      <PrecoVenda>90000</PrecoVenda>
    </Imovel>
  </Imoveis>
</Carga>`

func newTestLogger() *utils.Logger { return utils.NewLogger() }

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want FormatTag
	}{
		{"tecimob feed", sampleFeed, FormatTecimob},
		{"empty input", "", FormatUnknown},
		{"not xml", "definitely not a feed", FormatUnknown},
		{"foreign xml", "<rss><channel></channel></rss>", FormatUnknown},
		{"carga without items", "<Carga><Imoveis></Imoveis></Carga>", FormatUnknown},
	}

	for _, tt := range tests {
		if got := Detect(tt.raw); got != tt.want {
			t.Errorf("%s: Detect = %q; want %q", tt.name, got, tt.want)
		}
	}
}

func TestParseTecimobFields(t *testing.T) {
	listings, tag := Parse(sampleFeed, newTestLogger())
	if tag != FormatTecimob {
		t.Fatalf("tag = %q; want %q", tag, FormatTecimob)
	}
	// The third item has no CodigoImovel and must be skipped, not abort the parse.
	if len(listings) != 2 {
		t.Fatalf("parsed %d listings; want 2", len(listings))
	}

	first := listings[0]
	if first.ExternalCode != "1001" {
		t.Errorf("ExternalCode = %q; want 1001", first.ExternalCode)
	}
	if first.OperationLabel != "locacao" {
		t.Errorf("OperationLabel = %q; want locacao (category code 4)", first.OperationLabel)
	}
	if first.RentPrice != 1800 || first.SalePrice != 0 || first.CondoFee != 450 {
		t.Errorf("prices = %v/%v/%v; want 0/1800/450",
			first.SalePrice, first.RentPrice, first.CondoFee)
	}
	if first.City != "Florianópolis" || first.PostalCode != "88010-100" {
		t.Errorf("address parsed wrong: %q %q", first.City, first.PostalCode)
	}
	if first.PrivateArea != 75.5 || first.Bedrooms != 1 || first.ParkingSpots != 1 {
		t.Errorf("attributes parsed wrong: %v %d %d",
			first.PrivateArea, first.Bedrooms, first.ParkingSpots)
	}

	second := listings[1]
	if second.OperationLabel != "venda" {
		t.Errorf("missing category code should default to venda, got %q", second.OperationLabel)
	}
	if second.SalePrice != 0 {
		t.Errorf("unparsable price should fall back to 0, got %v", second.SalePrice)
	}
}

func TestParseTecimobTexts(t *testing.T) {
	listings, _ := Parse(sampleFeed, newTestLogger())

	first := listings[0]
	if first.Title != "Apartamento reformado" {
		t.Errorf("Title = %q; want first non-empty cleaned line", first.Title)
	}
	if !strings.Contains(first.Description, "Apartamento reformado\nVista para o mar") {
		t.Errorf("Description = %q; want decoded, tag-stripped text with newline", first.Description)
	}

	// No Observacao at all: title is synthesized from type + neighborhood.
	second := listings[1]
	if second.Title != "Casa em Trindade" {
		t.Errorf("synthesized Title = %q; want %q", second.Title, "Casa em Trindade")
	}
}

func TestParseTecimobPhotos(t *testing.T) {
	listings, _ := Parse(sampleFeed, newTestLogger())

	first := listings[0]
	if first.CoverPhoto != "http://fotos.example.com/b.jpg" {
		t.Errorf("CoverPhoto = %q; want the photo flagged Principal", first.CoverPhoto)
	}
	wantGallery := []string{"http://fotos.example.com/a.jpg", "http://fotos.example.com/c.jpg"}
	if len(first.GalleryURLs) != 2 || first.GalleryURLs[0] != wantGallery[0] || first.GalleryURLs[1] != wantGallery[1] {
		t.Errorf("GalleryURLs = %v; want %v in vendor order", first.GalleryURLs, wantGallery)
	}

	// No Principal flag anywhere: the first photo is promoted to cover.
	second := listings[1]
	if second.CoverPhoto != "http://fotos.example.com/d.jpg" {
		t.Errorf("promoted CoverPhoto = %q; want first gallery photo", second.CoverPhoto)
	}
	if len(second.GalleryURLs) != 1 || second.GalleryURLs[0] != "http://fotos.example.com/e.jpg" {
		t.Errorf("GalleryURLs after promotion = %v", second.GalleryURLs)
	}
}

func TestParseTecimobAmenities(t *testing.T) {
	listings, _ := Parse(sampleFeed, newTestLogger())

	first := listings[0]
	want := map[string]bool{"Ar Condicionado": true, "Piscina": true}
	if len(first.Amenities) != len(want) {
		t.Fatalf("Amenities = %v; want exactly %v", first.Amenities, want)
	}
	for _, a := range first.Amenities {
		if !want[a] {
			t.Errorf("unexpected amenity %q", a)
		}
	}
	// QtdDormitorios and QtdVagas hold "1" but are denylisted structural
	// fields; Churrasqueira holds "0" and is not an amenity either.
	for _, a := range first.Amenities {
		if a == "Qtd Dormitorios" || a == "Qtd Vagas" || a == "Churrasqueira" {
			t.Errorf("structural or unset field leaked into amenities: %q", a)
		}
	}
}
