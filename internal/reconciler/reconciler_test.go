package reconciler

import (
	"errors"
	"reflect"
	"sort"
	"testing"

	"github.com/Kewen526/serv-qoute/internal/domain"
)

func detailWith(info map[string][]domain.Variant) *domain.ProductDetail {
	return &domain.ProductDetail{QuotationInformation: info}
}

func TestBuildPriceParameter(t *testing.T) {
	t.Parallel()

	detail := detailWith(map[string][]domain.Variant{
		"GB": {{VariantID: "11", CountryID: "5"}},
	})
	lines := []domain.QuoteLine{{Nation: "GB", Quantity: 100, Price: 10.00}}

	result, err := Build(detail, lines)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := map[string]string{"pcs_100_11_5": "9.90"}
	if !reflect.DeepEqual(result.PriceParams, want) {
		t.Fatalf("unexpected params: %v", result.PriceParams)
	}
	if len(result.DeleteVariants) != 0 {
		t.Fatalf("unexpected deletions: %v", result.DeleteVariants)
	}
}

func TestBuildAllPricesZero(t *testing.T) {
	t.Parallel()

	detail := detailWith(map[string][]domain.Variant{
		"GB": {{VariantID: "11", CountryID: "5"}},
	})
	lines := []domain.QuoteLine{
		{Nation: "GB", Quantity: 100, Price: 0},
		{Nation: "US", Quantity: 50, Price: 0},
	}

	if _, err := Build(detail, lines); !errors.Is(err, domain.ErrAllPricesZero) {
		t.Fatalf("expected ErrAllPricesZero, got %v", err)
	}
}

func TestBuildDeletionForUncoveredCountries(t *testing.T) {
	t.Parallel()

	detail := detailWith(map[string][]domain.Variant{
		"GB": {{VariantID: "11", CountryID: "5"}, {VariantID: "12", CountryID: "5"}},
		"US": {{VariantID: "21", CountryID: "6"}},
		"AU": {{VariantID: "31", CountryID: "7"}, {VariantID: "32", CountryID: "7"}},
	})
	lines := []domain.QuoteLine{
		{Nation: "UK/GB", Quantity: 100, Price: 10.00},
		{Nation: "USA", Quantity: 100, Price: 0}, // excluded: does not cover US
	}

	result, err := Build(detail, lines)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	wantParams := map[string]string{
		"pcs_100_11_5": "9.90",
		"pcs_100_12_5": "9.90",
	}
	if !reflect.DeepEqual(result.PriceParams, wantParams) {
		t.Fatalf("unexpected params: %v", result.PriceParams)
	}

	if len(result.DeleteVariants) != 2 {
		t.Fatalf("expected deletions for US and AU, got %v", result.DeleteVariants)
	}
	if !reflect.DeepEqual(result.DeleteVariants["6"], []domain.ID{"21"}) {
		t.Fatalf("unexpected US deletion: %v", result.DeleteVariants["6"])
	}

	au := append([]domain.ID(nil), result.DeleteVariants["7"]...)
	sort.Slice(au, func(i, j int) bool { return au[i] < au[j] })
	if !reflect.DeepEqual(au, []domain.ID{"31", "32"}) {
		t.Fatalf("unexpected AU deletion: %v", au)
	}

	if result.SkippedZeroPrice != 1 {
		t.Fatalf("expected 1 skipped zero-price line, got %d", result.SkippedZeroPrice)
	}

	// A priced country never appears in the deletion set.
	if _, ok := result.DeleteVariants["5"]; ok {
		t.Fatal("GB must not be deleted while priced")
	}
}

func TestBuildSkipsUnmatchedCountries(t *testing.T) {
	t.Parallel()

	detail := detailWith(map[string][]domain.Variant{
		"GB": {{VariantID: "11", CountryID: "5"}},
	})
	lines := []domain.QuoteLine{
		{Nation: "GB", Quantity: 100, Price: 8.00},
		{Nation: "FR", Quantity: 100, Price: 8.00},
	}

	result, err := Build(detail, lines)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if result.SkippedUnmatched != 1 {
		t.Fatalf("expected 1 unmatched line, got %d", result.SkippedUnmatched)
	}
	if len(result.PriceParams) != 1 {
		t.Fatalf("unexpected params: %v", result.PriceParams)
	}
}

func TestBuildNoPriceParameters(t *testing.T) {
	t.Parallel()

	detail := detailWith(map[string][]domain.Variant{
		"GB": {{VariantID: "11", CountryID: "5"}},
	})
	// Positive price, but for a country the product does not carry.
	lines := []domain.QuoteLine{{Nation: "FR", Quantity: 100, Price: 8.00}}

	if _, err := Build(detail, lines); !errors.Is(err, domain.ErrNoPriceParameters) {
		t.Fatalf("expected ErrNoPriceParameters, got %v", err)
	}
}

func TestBuildNoVariantInformation(t *testing.T) {
	t.Parallel()

	detail := detailWith(map[string][]domain.Variant{"GB": {}})
	lines := []domain.QuoteLine{{Nation: "GB", Quantity: 100, Price: 8.00}}

	if _, err := Build(detail, lines); !errors.Is(err, domain.ErrNoPriceParameters) {
		t.Fatalf("expected ErrNoPriceParameters, got %v", err)
	}
}

func TestBuildPriceRounding(t *testing.T) {
	t.Parallel()

	detail := detailWith(map[string][]domain.Variant{
		"GB": {{VariantID: "11", CountryID: "5"}},
	})

	cases := []struct {
		price float64
		want  string
	}{
		{10.00, "9.90"},
		{1.00, "0.99"},
		{33.33, "33.00"},
		{0.01, "0.01"},
	}

	for _, tc := range cases {
		result, err := Build(detail, []domain.QuoteLine{{Nation: "GB", Quantity: 1, Price: tc.price}})
		if err != nil {
			t.Fatalf("Build(%v): %v", tc.price, err)
		}
		if got := result.PriceParams["pcs_1_11_5"]; got != tc.want {
			t.Fatalf("price %v: expected %s, got %s", tc.price, tc.want, got)
		}
	}
}
