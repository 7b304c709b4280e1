package organizer

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/DRSN-tech/visual-recommender/internal/usecase"
	"github.com/DRSN-tech/visual-recommender/pkg/e"
	"github.com/shopspring/decimal"
)

// Record — запись о товаре из JSON-файла или строки styles.csv.
type Record struct {
	ID             int64
	Name           string
	Category       string
	Type           string
	MasterCategory string
	SubCategory    string
	ArticleType    string
	Gender         string
	Season         string
	Usage          string
	BaseColour     string
	Price          *decimal.Decimal
}

// fields возвращает поля записи в порядке приоритета для признака dim.
func (r *Record) fields(dim Dimension) []string {
	switch dim {
	case DimGender:
		return []string{r.Gender, r.Name}
	case DimSeason:
		return []string{r.Season}
	case DimFormality:
		return []string{r.Usage, r.Name}
	default:
		return []string{r.Category, r.Type, r.ArticleType, r.SubCategory, r.Name}
	}
}

// typeName принимает как строку, так и объект вида {"typeName": "..."}.
type typeName string

func (t *typeName) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = typeName(s)
		return nil
	}

	var obj struct {
		TypeName string `json:"typeName"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*t = typeName(obj.TypeName)
	return nil
}

type rawRecord struct {
	Data *rawRecord `json:"data"`

	ID                 json.Number      `json:"id"`
	Price              *decimal.Decimal `json:"price"`
	ProductDisplayName string           `json:"productDisplayName"`
	Name               string           `json:"name"`
	Title              string           `json:"title"`
	ProductName        string           `json:"product_name"`
	ProductTitle       string           `json:"product_title"`
	Category           typeName         `json:"category"`
	Type               typeName         `json:"type"`
	MasterCategory     typeName         `json:"masterCategory"`
	SubCategory        typeName         `json:"subCategory"`
	ArticleType        typeName         `json:"articleType"`
	Gender             string           `json:"gender"`
	Season             string           `json:"season"`
	Usage              string           `json:"usage"`
	BaseColour         string           `json:"baseColour"`
}

// ParseJSONRecord разбирает запись в формате {"data": {...}} или плоский объект.
func ParseJSONRecord(data []byte) (*Record, error) {
	var raw rawRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if raw.Data != nil {
		raw = *raw.Data
	}

	rec := &Record{
		Category:       string(raw.Category),
		Type:           string(raw.Type),
		MasterCategory: string(raw.MasterCategory),
		SubCategory:    string(raw.SubCategory),
		ArticleType:    string(raw.ArticleType),
		Gender:         raw.Gender,
		Season:         raw.Season,
		Usage:          raw.Usage,
		BaseColour:     raw.BaseColour,
		Price:          raw.Price,
	}
	rec.Name, _ = firstNonEmptyRaw(raw.ProductDisplayName, raw.Name, raw.Title, raw.ProductName, raw.ProductTitle)

	if raw.ID != "" {
		id, err := raw.ID.Int64()
		if err != nil {
			return nil, fmt.Errorf("record id %q: %w", raw.ID, err)
		}
		rec.ID = id
	}

	return rec, nil
}

func firstNonEmptyRaw(values ...string) (string, bool) {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v, true
		}
	}
	return "", false
}

// ReadStylesCSV читает styles.csv. Битые строки не прерывают чтение и возвращаются списком ошибок.
// Запятые в productDisplayName без кавычек склеиваются обратно, если это последняя колонка.
func ReadStylesCSV(r io.Reader) ([]*Record, []error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, []error{fmt.Errorf("read header: %w", err)}
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	idCol, ok := cols["id"]
	if !ok {
		return nil, []error{errors.New("styles csv: missing id column")}
	}
	nameCol, hasName := cols["productdisplayname"]
	lastIsName := hasName && nameCol == len(header)-1

	get := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var (
		records []*Record
		errs    []error
	)
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("line %d: %w", line, err))
			continue
		}

		if lastIsName && len(row) > len(header) {
			row = append(row[:nameCol:nameCol], strings.Join(row[nameCol:], ","))
		}

		if idCol >= len(row) {
			errs = append(errs, fmt.Errorf("line %d: missing id", line))
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSpace(row[idCol]), 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("line %d: id %q: %w", line, row[idCol], err))
			continue
		}

		rec := &Record{
			ID:             id,
			Name:           get(row, "productdisplayname"),
			MasterCategory: get(row, "mastercategory"),
			SubCategory:    get(row, "subcategory"),
			ArticleType:    get(row, "articletype"),
			Gender:         get(row, "gender"),
			Season:         get(row, "season"),
			Usage:          get(row, "usage"),
			BaseColour:     get(row, "basecolour"),
		}
		if p := get(row, "price"); p != "" {
			d, err := decimal.NewFromString(p)
			if err != nil {
				errs = append(errs, fmt.Errorf("line %d: price %q: %w", line, p, e.ErrInvalidPrice))
				continue
			}
			rec.Price = &d
		}

		records = append(records, rec)
	}

	return records, errs
}

// ToProductRecord готовит запись к импорту в БД. Цена без значения импортируется как 0.
func (r *Record) ToProductRecord() (usecase.ProductRecord, error) {
	var cents int64
	if r.Price != nil {
		c, err := PriceToCents(*r.Price)
		if err != nil {
			return usecase.ProductRecord{}, err
		}
		cents = c
	}

	category, _ := firstNonEmptyRaw(r.SubCategory, r.Category, r.Type, r.MasterCategory)

	return usecase.ProductRecord{
		ID:           r.ID,
		Name:         r.Name,
		CategoryName: category,
		Price:        cents,
		Gender:       r.Gender,
		Season:       r.Season,
		Usage:        r.Usage,
		BaseColour:   r.BaseColour,
		ArticleType:  r.ArticleType,
	}, nil
}
