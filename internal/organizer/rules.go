package organizer

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// OthersBucket получает записи, не подошедшие ни под одно ключевое слово.
const OthersBucket = "others"

// Dimension — признак, по которому раскладываются записи.
type Dimension string

const (
	DimClothing  Dimension = "clothing"
	DimGender    Dimension = "gender"
	DimSeason    Dimension = "season"
	DimFormality Dimension = "formality"
)

// ParseDimension разбирает имя признака из флага --by.
func ParseDimension(s string) (Dimension, error) {
	switch d := Dimension(strings.ToLower(strings.TrimSpace(s))); d {
	case DimClothing, DimGender, DimSeason, DimFormality:
		return d, nil
	default:
		return "", fmt.Errorf("unknown dimension %q: want clothing|gender|season|formality", s)
	}
}

// Bucket — выходной каталог и ключевые слова, по которым в него попадает запись.
type Bucket struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Rules — правила классификации. Корзины проверяются по порядку, побеждает первое совпадение.
type Rules struct {
	Clothing    []Bucket `yaml:"clothing"`
	Gender      []Bucket `yaml:"gender"`
	Season      []Bucket `yaml:"season"`
	Formality   []Bucket `yaml:"formality"`
	Accessories []string `yaml:"accessories"`
	Includes    []string `yaml:"includes"`
	Excludes    []string `yaml:"excludes"`
}

// DefaultRules возвращает встроенные правила для датасета модной одежды.
func DefaultRules() *Rules {
	return &Rules{
		Clothing: []Bucket{
			{Name: "swimwear", Keywords: []string{"swimwear", "swimsuit", "bikini"}},
			{Name: "sleepwear", Keywords: []string{"sleepwear", "nightwear", "loungewear", "night suits"}},
			{Name: "innerwear", Keywords: []string{"underwear", "lingerie", "innerwear", "socks", "stockings", "tights"}},
			{Name: "topwear", Keywords: []string{"tops", "t-shirts", "tshirts", "shirts", "blouses", "sweaters", "hoodies", "sweatshirts", "topwear", "kurtas"}},
			{Name: "outerwear", Keywords: []string{"jackets", "coats", "blazers"}},
			{Name: "dresses", Keywords: []string{"dresses", "jumpsuits", "rompers"}},
			{Name: "bottomwear", Keywords: []string{"skirts", "pants", "jeans", "shorts", "leggings", "trousers", "bottomwear"}},
			{Name: "activewear", Keywords: []string{"activewear", "tracksuits"}},
			{Name: "formal", Keywords: []string{"suits", "formal wear"}},
			{Name: "casual", Keywords: []string{"casual wear"}},
		},
		// women раньше men: "men" является подстрокой "women"
		Gender: []Bucket{
			{Name: "women", Keywords: []string{"women", "girls"}},
			{Name: "men", Keywords: []string{"men", "boys"}},
			{Name: "unisex", Keywords: []string{"unisex"}},
		},
		Season: []Bucket{
			{Name: "summer", Keywords: []string{"summer"}},
			{Name: "winter", Keywords: []string{"winter"}},
			{Name: "fall", Keywords: []string{"fall", "autumn"}},
			{Name: "spring", Keywords: []string{"spring"}},
		},
		Formality: []Bucket{
			{Name: "formal", Keywords: []string{"formal", "party", "ethnic"}},
			{Name: "casual", Keywords: []string{"casual", "sports", "travel", "home"}},
		},
		Accessories: []string{
			"accessories", "jewelry", "jewellery", "watches", "bags", "wallets", "belts", "scarves",
			"gloves", "hats", "caps", "sunglasses", "eyewear", "hair accessories",
			"hair clips", "hair bands", "hair ties", "necklaces", "bracelets", "earrings",
			"rings", "anklets", "brooches", "pins", "ties", "bow ties", "cufflinks",
			"mittens", "socks", "stockings", "tights", "shoes", "sandals",
			"boots", "sneakers", "heels", "flats", "loafers", "mules", "pumps", "footwear",
		},
		Includes: []string{"*.json"},
		Excludes: []string{"accessories_backup/**"},
	}
}

// LoadRules читает правила из YAML поверх встроенных. Пустой путь или отсутствующий файл дают DefaultRules.
// Секция, заданная в файле, целиком заменяет встроенную.
func LoadRules(path string) (*Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return rules, nil
		}
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, rules); err != nil {
		return nil, fmt.Errorf("parse rules %s: %w", path, err)
	}

	return rules, nil
}

func (r *Rules) buckets(dim Dimension) []Bucket {
	switch dim {
	case DimGender:
		return r.Gender
	case DimSeason:
		return r.Season
	case DimFormality:
		return r.Formality
	default:
		return r.Clothing
	}
}

// Classify возвращает корзину записи по признаку dim или OthersBucket.
// Решает первое непустое поле записи для этого признака.
func (r *Rules) Classify(dim Dimension, rec *Record) string {
	value, ok := firstNonEmpty(rec.fields(dim))
	if !ok {
		return OthersBucket
	}

	for _, b := range r.buckets(dim) {
		if containsAny(value, b.Keywords) {
			return b.Name
		}
	}

	return OthersBucket
}

// IsAccessory сообщает, относится ли запись к аксессуарам.
func (r *Rules) IsAccessory(rec *Record) bool {
	if containsAny(strings.ToLower(rec.MasterCategory), []string{"accessories", "footwear"}) {
		return true
	}

	value, ok := firstNonEmpty(rec.fields(DimClothing))
	if !ok {
		return false
	}
	return containsAny(value, r.Accessories)
}

func firstNonEmpty(values []string) (string, bool) {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return strings.ToLower(v), true
		}
	}
	return "", false
}

func containsAny(value string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(value, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
