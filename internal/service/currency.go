package service

// Currency описывает валюту учёта.
type Currency struct {
	Code   string
	Symbol string
	Name   string
}

var knownCurrencies = map[string]Currency{
	"EUR": {Code: "EUR", Symbol: "€", Name: "Euro"},
	"USD": {Code: "USD", Symbol: "$", Name: "US Dollar"},
	"GBP": {Code: "GBP", Symbol: "£", Name: "Pound Sterling"},
	"CHF": {Code: "CHF", Symbol: "CHF", Name: "Swiss Franc"},
	"RUB": {Code: "RUB", Symbol: "₽", Name: "Russian Ruble"},
}

// LookupCurrency возвращает описание валюты. Для неизвестного кода символом и названием служит сам код.
func LookupCurrency(code string) Currency {
	if c, ok := knownCurrencies[code]; ok {
		return c
	}
	return Currency{Code: code, Symbol: code, Name: code}
}

// Currency возвращает валюту учёта.
func (s *Service) Currency() Currency {
	return s.currency
}
