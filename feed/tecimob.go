package feed

import (
	"fmt"
	"strings"

	"imovel-importer/models"
	"imovel-importer/utils"
)

// rentalCategoryCode is the vendor category code that marks a rental listing.
// Every other value, including absent, collapses to "venda". The vendor
// format has richer operation semantics (combined sale-or-rent listings
// exist); this binary mapping is a deliberate simplification kept as-is
// pending product confirmation.
const rentalCategoryCode = "4"

// nonAmenityTags is the denylist of structural <Imovel> children that must
// never be read as amenities. Counters like QtdDormitorios legitimately hold
// "1", and flags like Destaque are vendor metadata, not features of the
// property. This list has to track the vendor schema: a new structural field
// that is not added here will leak into the amenity list as a fake label.
var nonAmenityTags = map[string]struct{}{
	"CodigoImovel":    {},
	"CodigoCliente":   {},
	"TipoImovel":      {},
	"SubTipoImovel":   {},
	"CategoriaImovel": {},
	"CodigoCategoria": {},
	"Finalidade":      {},

	"PrecoVenda":      {},
	"PrecoLocacao":    {},
	"PrecoCondominio": {},
	"PrecoIPTU":       {},

	"Endereco":    {},
	"Numero":      {},
	"Complemento": {},
	"Bairro":      {},
	"Cidade":      {},
	"UF":          {},
	"CEP":         {},
	"Latitude":    {},
	"Longitude":   {},

	"AreaUtil":       {},
	"AreaTotal":      {},
	"QtdDormitorios": {},
	"QtdSuites":      {},
	"QtdBanheiros":   {},
	"QtdVagas":       {},
	"QtdSalas":       {},
	"QtdElevador":    {},
	"AnoConstrucao":  {},

	"TituloImovel": {},
	"Observacao":   {},
	"Fotos":        {},
	"Videos":       {},

	"DataCadastro":    {},
	"DataAtualizacao": {},
	"PublicarImovel":  {},
	"ImovelPronto":    {},
	"Exclusividade":   {},
	"Destaque":        {},
}

func matchTecimob(root *element) bool {
	if root.XMLName.Local != "Carga" {
		return false
	}
	imoveis := root.child("Imoveis")
	return imoveis != nil && imoveis.child("Imovel") != nil
}

// parseTecimob walks every <Imovel> in document order. A malformed item is
// logged and skipped — one bad record never aborts the whole parse.
func parseTecimob(root *element, logger *utils.Logger) []*models.ImportedListing {
	imoveis := root.child("Imoveis")
	if imoveis == nil {
		return nil
	}

	log := logger.Named("tecimob")
	var listings []*models.ImportedListing
	for i := range imoveis.Children {
		item := &imoveis.Children[i]
		if item.XMLName.Local != "Imovel" {
			continue
		}
		listing, err := parseItem(item)
		if err != nil {
			log.Warn("Skipping item %d: %v", i+1, err)
			continue
		}
		listings = append(listings, listing)
	}
	return listings
}

func parseItem(item *element) (listing *models.ImportedListing, err error) {
	defer func() {
		if r := recover(); r != nil {
			listing, err = nil, fmt.Errorf("malformed item: %v", r)
		}
	}()

	code := item.childText("CodigoImovel")
	if code == "" {
		return nil, fmt.Errorf("missing CodigoImovel")
	}

	operation := "venda"
	if item.childText("CodigoCategoria") == rentalCategoryCode {
		operation = "locacao"
	}

	l := &models.ImportedListing{
		ExternalCode:   code,
		CategoryLabel:  item.childText("TipoImovel"),
		OperationLabel: operation,

		SalePrice: utils.ParseFloatOrZero(item.childText("PrecoVenda")),
		RentPrice: utils.ParseFloatOrZero(item.childText("PrecoLocacao")),
		CondoFee:  utils.ParseFloatOrZero(item.childText("PrecoCondominio")),

		Street:       item.childText("Endereco"),
		Number:       item.childText("Numero"),
		Neighborhood: item.childText("Bairro"),
		City:         item.childText("Cidade"),
		State:        item.childText("UF"),
		PostalCode:   item.childText("CEP"),

		PrivateArea:  utils.ParseFloatOrZero(item.childText("AreaUtil")),
		TotalArea:    utils.ParseFloatOrZero(item.childText("AreaTotal")),
		Bedrooms:     utils.ParseIntOrZero(item.childText("QtdDormitorios")),
		Suites:       utils.ParseIntOrZero(item.childText("QtdSuites")),
		Bathrooms:    utils.ParseIntOrZero(item.childText("QtdBanheiros")),
		ParkingSpots: utils.ParseIntOrZero(item.childText("QtdVagas")),

		ReadyToLive: item.childText("ImovelPronto") == "1",
	}

	l.Title, l.Description = extractTexts(item, l)
	l.CoverPhoto, l.GalleryURLs = extractPhotos(item)
	l.VideoURLs = extractVideos(item)
	l.Amenities = extractAmenities(item)

	return l, nil
}

// extractTexts cleans the vendor description and derives the title from its
// first non-empty line. When the vendor text yields no usable title, one is
// synthesized from the property type and neighborhood.
func extractTexts(item *element, l *models.ImportedListing) (title, description string) {
	description = utils.StripHTML(item.childText("Observacao"))

	title = utils.StripHTML(item.childText("TituloImovel"))
	if title == "" {
		title = utils.FirstNonEmptyLine(description)
	}
	if title == "" {
		title = strings.TrimSpace(fmt.Sprintf("%s em %s", l.CategoryLabel, l.Neighborhood))
	}
	return utils.TruncateEllipsis(title, 100), description
}

// extractPhotos picks the photo flagged Principal as the cover and keeps the
// rest as the gallery in vendor order. Without a principal flag the first
// gallery photo is promoted: the cover is never empty when photos exist.
func extractPhotos(item *element) (cover string, gallery []string) {
	fotos := item.child("Fotos")
	if fotos == nil {
		return "", nil
	}
	for i := range fotos.Children {
		foto := &fotos.Children[i]
		if foto.XMLName.Local != "Foto" {
			continue
		}
		url := foto.childText("URLArquivo")
		if url == "" {
			continue
		}
		if cover == "" && foto.childText("Principal") == "1" {
			cover = url
			continue
		}
		gallery = append(gallery, url)
	}
	if cover == "" && len(gallery) > 0 {
		cover = gallery[0]
		gallery = gallery[1:]
	}
	return cover, gallery
}

func extractVideos(item *element) []string {
	videos := item.child("Videos")
	if videos == nil {
		return nil
	}
	var urls []string
	for i := range videos.Children {
		video := &videos.Children[i]
		if video.XMLName.Local != "Video" {
			continue
		}
		url := video.childText("Url")
		if url == "" {
			url = strings.TrimSpace(video.Text)
		}
		if url != "" {
			urls = append(urls, url)
		}
	}
	return urls
}

// extractAmenities treats every direct child holding exactly "1" as a boolean
// amenity, unless the tag is denylisted as structural. The tag name becomes a
// human-readable label by splitting its camel case.
func extractAmenities(item *element) []string {
	var amenities []string
	for i := range item.Children {
		child := &item.Children[i]
		if len(child.Children) > 0 {
			continue
		}
		if strings.TrimSpace(child.Text) != "1" {
			continue
		}
		if _, structural := nonAmenityTags[child.XMLName.Local]; structural {
			continue
		}
		amenities = append(amenities, utils.SplitCamelCase(child.XMLName.Local))
	}
	return amenities
}
