package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

var header = []string{"Branch Name", "Main Code", "Ac Type Desc", "Name", "Limit", "Balance", "Provision"}

var (
	branches     = []string{"Kathmandu", "Pokhara", "Biratnagar", "Butwal", "Birgunj", "Dharan"}
	accountTypes = []string{"Home Loan", "Auto Loan", "Business Loan", "Overdraft", "Staff Home Loan", "Staff Vehicle Loan"}
	provisions   = []string{"Good", "Watchlist", "Substandard", "Doubtful", "Bad"}
)

// SnapshotGenerator produces a previous and a current portfolio extract that
// share most of their accounts.
type SnapshotGenerator struct {
	Accounts      int
	SettledRatio  float64
	NewRatio      float64
	MovementRatio float64
	Duplicates    int
	Sentinels     bool
	Seed          int64

	faker *gofakeit.Faker
}

type account struct {
	branch      string
	code        string
	accountType string
	name        string
	limit       decimal.Decimal
	balance     decimal.Decimal
	provision   int
}

func (a account) row() []string {
	return []string{
		a.branch,
		a.code,
		a.accountType,
		a.name,
		a.limit.StringFixed(2),
		a.balance.StringFixed(2),
		provisions[a.provision],
	}
}

func main() {
	var (
		outputDir  = flag.String("output-dir", "../generated", "Output directory for generated files")
		prefix     = flag.String("prefix", "portfolio", "File name prefix")
		format     = flag.String("format", "csv", "Output format: csv, xlsx")
		accounts   = flag.Int("accounts", 500, "Number of accounts in the previous snapshot")
		settled    = flag.Float64("settled-ratio", 0.05, "Share of previous accounts missing from the current snapshot")
		newRatio   = flag.Float64("new-ratio", 0.08, "Share of accounts opened in the current period")
		movement   = flag.Float64("movement-ratio", 0.15, "Share of shared accounts that change provision")
		duplicates = flag.Int("duplicates", 0, "Number of Main Code values repeated in the current snapshot")
		sentinels  = flag.Bool("sentinels", true, "Append AcType Total and Grand Total rows")
		seed       = flag.Int64("seed", 1, "Random seed for reproducible generation")
	)
	flag.Parse()

	if *format != "csv" && *format != "xlsx" {
		log.Fatalf("Unknown format: %s", *format)
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	generator := &SnapshotGenerator{
		Accounts:      *accounts,
		SettledRatio:  *settled,
		NewRatio:      *newRatio,
		MovementRatio: *movement,
		Duplicates:    *duplicates,
		Sentinels:     *sentinels,
		Seed:          *seed,
	}

	previous, current := generator.Generate()

	for _, snapshot := range []struct {
		name string
		rows [][]string
	}{
		{"previous", previous},
		{"current", current},
	} {
		path := filepath.Join(*outputDir, fmt.Sprintf("%s_%s.%s", *prefix, snapshot.name, *format))
		var err error
		if *format == "xlsx" {
			err = writeXLSX(path, snapshot.rows)
		} else {
			err = writeCSV(path, snapshot.rows)
		}
		if err != nil {
			log.Fatalf("Failed to write %s: %v", path, err)
		}
		fmt.Printf("Generated %d rows in %s\n", len(snapshot.rows)-1, path)
	}
}

// Generate returns both snapshots including their header rows.
func (g *SnapshotGenerator) Generate() ([][]string, [][]string) {
	g.faker = gofakeit.New(g.Seed)

	book := make([]account, g.Accounts)
	for i := range book {
		book[i] = g.newAccount(fmt.Sprintf("%07d", 1000000+i))
	}

	previous := [][]string{header}
	for _, a := range book {
		previous = append(previous, a.row())
	}

	current := [][]string{header}
	var kept []account
	for _, a := range book {
		if g.faker.Float64() < g.SettledRatio {
			continue
		}
		current = append(current, g.evolve(a).row())
		kept = append(kept, a)
	}

	opened := int(float64(g.Accounts) * g.NewRatio)
	for i := 0; i < opened; i++ {
		current = append(current, g.newAccount(fmt.Sprintf("%07d", 2000000+i)).row())
	}

	for i := 0; i < g.Duplicates && i < len(kept); i++ {
		dup := g.evolve(kept[i])
		dup.name = g.faker.Name()
		current = append(current, dup.row())
	}

	if g.Sentinels {
		previous = appendSentinels(previous)
		current = appendSentinels(current)
	}
	return previous, current
}

func (g *SnapshotGenerator) newAccount(code string) account {
	limit := decimal.NewFromInt(int64(g.faker.Number(50, 5000)) * 1000)
	used := decimal.NewFromFloat(g.faker.Float64Range(0.2, 1.0))
	return account{
		branch:      g.faker.RandomString(branches),
		code:        code,
		accountType: g.faker.RandomString(accountTypes),
		name:        g.faker.Name(),
		limit:       limit,
		balance:     limit.Mul(used).Round(2),
		provision:   g.initialProvision(),
	}
}

// initialProvision skews the book towards performing accounts.
func (g *SnapshotGenerator) initialProvision() int {
	switch n := g.faker.Number(1, 100); {
	case n <= 75:
		return 0
	case n <= 88:
		return 1
	case n <= 94:
		return 2
	case n <= 98:
		return 3
	default:
		return 4
	}
}

// evolve moves the balance and, for a share of accounts, the provision by one
// grade in either direction.
func (g *SnapshotGenerator) evolve(a account) account {
	next := a
	change := decimal.NewFromFloat(g.faker.Float64Range(-0.1, 0.05))
	next.balance = a.balance.Add(a.balance.Mul(change)).Round(2)
	if next.balance.IsNegative() {
		next.balance = decimal.Zero
	}

	if g.faker.Float64() < g.MovementRatio {
		if g.faker.Bool() && a.provision < len(provisions)-1 {
			next.provision = a.provision + 1
		} else if a.provision > 0 {
			next.provision = a.provision - 1
		}
	}
	return next
}

func appendSentinels(rows [][]string) [][]string {
	total := decimal.Zero
	for _, row := range rows[1:] {
		total = total.Add(decimal.RequireFromString(row[5]))
	}
	return append(rows,
		[]string{"", "AcType Total", "", "", "", total.StringFixed(2), ""},
		[]string{"", "Grand Total", "", "", "", total.StringFixed(2), ""},
	)
}

func writeCSV(path string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.WriteAll(rows); err != nil {
		return err
	}
	return file.Sync()
}

func writeXLSX(path string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if len(sheet) > 31 {
		sheet = sheet[:31]
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}
