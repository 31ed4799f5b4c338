// seed carga el catálogo de productos desde un CSV exportado de hojas de cálculo.
//
// Uso: go run ./cmd/seed [ruta/productos.csv]
// Por defecto busca productos.csv en el directorio actual.
// Columnas: sku;name;category;price;unit;reorderPoint;initialStock (separador ';' o ',').
// Los archivos en ISO-8859-1 (Excel en español) se decodifican a UTF-8 automáticamente.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/stockmaster-api/internal/application/dto"
	"github.com/jhoicas/stockmaster-api/internal/application/inventory"
	"github.com/jhoicas/stockmaster-api/internal/application/usecase"
	"github.com/jhoicas/stockmaster-api/internal/domain"
	"github.com/jhoicas/stockmaster-api/internal/infrastructure/postgres"
	"github.com/jhoicas/stockmaster-api/pkg/config"
	"github.com/jhoicas/stockmaster-api/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	csvPath := "productos.csv"
	if len(os.Args) > 1 {
		csvPath = os.Args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel}).Component("seed")

	f, err := os.Open(csvPath)
	if err != nil {
		log.Fatal().Err(err).Str("file", csvPath).Msg("abrir CSV")
	}
	defer f.Close()

	rows, err := readProducts(f)
	if err != nil {
		log.Fatal().Err(err).Str("file", csvPath).Msg("leer CSV")
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()
	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("aplicar esquema")
	}

	products := postgres.NewProductRepository(pool)
	ledger := inventory.NewLedgerUseCase(postgres.NewTxRunner(pool), products, postgres.NewMovementRepository(pool), cfg.DB.QueryTimeout, nil)
	productUC := usecase.NewProductUseCase(products, ledger)

	var created, skipped int
	for i, row := range rows {
		p, err := productUC.Create(ctx, "", row)
		switch {
		case errors.Is(err, domain.ErrConflict):
			skipped++
			log.Debug().Str("sku", row.SKU).Msg("SKU existente, se omite")
		case err != nil:
			log.Fatal().Err(err).Int("line", i+2).Str("sku", row.SKU).Msg("crear producto")
		default:
			created++
			log.Debug().Str("id", p.ID).Str("sku", p.SKU).Int64("stock", p.Stock).Msg("producto creado")
		}
	}
	log.Info().Int("created", created).Int("skipped", skipped).Str("file", csvPath).Msg("seed completado")
}

// readProducts decodifica el CSV. La primera fila es el encabezado.
func readProducts(r io.Reader) ([]dto.CreateProductRequest, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(4096)
	sample := head
	if i := bytes.LastIndexByte(sample, '\n'); i >= 0 {
		sample = sample[:i]
	}
	var src io.Reader = br
	if !utf8.Valid(sample) {
		src = transform.NewReader(br, charmap.ISO8859_1.NewDecoder())
	}

	cr := csv.NewReader(src)
	cr.Comma = ';'
	if line, _, _ := strings.Cut(string(head), "\n"); !strings.Contains(line, ";") {
		cr.Comma = ','
	}
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("el CSV no tiene filas de productos")
	}

	out := make([]dto.CreateProductRequest, 0, len(records)-1)
	for i, rec := range records[1:] {
		row, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("línea %d: %w", i+2, err)
		}
		out = append(out, row)
	}
	return out, nil
}

func parseRow(rec []string) (dto.CreateProductRequest, error) {
	field := func(i int) string {
		if i < len(rec) {
			return strings.TrimSpace(strings.TrimPrefix(rec[i], "\ufeff"))
		}
		return ""
	}
	row := dto.CreateProductRequest{
		SKU:      field(0),
		Name:     field(1),
		Category: field(2),
		Unit:     field(4),
	}
	if row.Name == "" {
		return row, fmt.Errorf("name vacío")
	}
	if raw := field(3); raw != "" {
		// 25.000,50 (formato local) o 25000.50
		if strings.Contains(raw, ",") {
			raw = strings.ReplaceAll(strings.ReplaceAll(raw, ".", ""), ",", ".")
		}
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return row, fmt.Errorf("price inválido %q", field(3))
		}
		row.Price = price
	}
	for idx, dst := range map[int]**int64{5: &row.ReorderPoint, 6: &row.InitialStock} {
		raw := field(idx)
		if raw == "" {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return row, fmt.Errorf("columna %d inválida %q", idx+1, raw)
		}
		*dst = &n
	}
	return row, nil
}
