package genregistry

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/brianvoe/gofakeit/v7"
)

// fakerMethods maps a callable fake-value provider method name (as exposed
// through get_gen_methods) to a thunk producing one value. Grounded on
// other_examples' tomfevang-go-test-my-db generator, which builds its
// fake-row generator directly on gofakeit/v7's top-level functions.
var fakerMethods = map[string]func() string{
	"name":             gofakeit.Name,
	"first_name":       gofakeit.FirstName,
	"last_name":        gofakeit.LastName,
	"email":            gofakeit.Email,
	"phone":            gofakeit.Phone,
	"username":         gofakeit.Username,
	"city":             gofakeit.City,
	"state":            gofakeit.State,
	"zip":              gofakeit.Zip,
	"country":          gofakeit.Country,
	"street":           gofakeit.Street,
	"company":          gofakeit.Company,
	"job_title":        gofakeit.JobTitle,
	"word":             gofakeit.Word,
	"uuid":             gofakeit.UUID,
	"url":              gofakeit.URL,
	"color":            gofakeit.HexColor,
	"currency":         gofakeit.CurrencyShort,
	"credit_card":      gofakeit.CreditCardNumber,
	"ipv4":             gofakeit.IPv4Address,
	"sentence": func() string {
		return gofakeit.Sentence(8)
	},
	"paragraph": func() string {
		return gofakeit.Paragraph(3, 5, 10, " ")
	},
	"bool": func() string {
		return strconv.FormatBool(gofakeit.Bool())
	},
	"number": func() string {
		return strconv.Itoa(gofakeit.Number(1, 1_000_000))
	},
	"float": func() string {
		return strconv.FormatFloat(gofakeit.Float64Range(0, 1_000_000), 'f', 2, 64)
	},
	"password": func() string {
		return gofakeit.Password(true, true, true, true, false, 16)
	},
	"date": func() string {
		return gofakeit.Date().Format("2006-01-02")
	},
}

// FakerMethods returns the sorted list of callable fake-value provider
// method names, backing the get_gen_methods command.
func FakerMethods() []string {
	names := make([]string, 0, len(fakerMethods))
	for name := range fakerMethods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type fakerKind struct{}

func (fakerKind) Validate(spec string) (int, error) {
	if _, ok := fakerMethods[spec]; !ok {
		return 0, fmt.Errorf("genregistry: unknown faker method %q", spec)
	}
	return 0, nil
}

func (fakerKind) Stream(_ context.Context, gctx *GenContext) (*string, error) {
	fn, ok := fakerMethods[gctx.Spec]
	if !ok {
		return nil, fmt.Errorf("genregistry: unknown faker method %q", gctx.Spec)
	}
	v := fn()
	v = capString(gctx.Column, v)
	v = capNumeric(gctx.Column, v)
	return &v, nil
}
