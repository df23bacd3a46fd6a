package workforce_test

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicledger/budgetmap/pkg/errors"
	"github.com/civicledger/budgetmap/pkg/logging"
	"github.com/civicledger/budgetmap/pkg/registry"
	"github.com/civicledger/budgetmap/pkg/workforce"
)

const payroll = `Year,DepartmentOrSubdivision,EntityCode,RegularPay,OvertimePay,OtherPay,HealthDentalVision
2023,Judicial Branch,0250,"$40,000.00",500,,12000
2023,Judicial Branch,0250,55000,0,0,12000
2023,judicial branch,,61000,,,
2022,Judicial Branch,0250,39000,,,
2023,Water Resources,3860,-5,,,
abc,Judicial Branch,0250,1,,,
2023,,0250,1,,,
2023,Water Resources,3860,12x,,,
`

func TestRead(t *testing.T) {
	res, err := workforce.Read(context.Background(), strings.NewReader(payroll), "payroll.csv", workforce.DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 8, res.Rows)
	assert.Equal(t, 3, res.Malformed)
	assert.Equal(t, 1, res.OutOfRange)
	require.Len(t, res.Entities, 2)

	judicial := res.Entities[0]
	assert.Equal(t, "Judicial Branch", judicial.Name)
	assert.Equal(t, "0250", judicial.Code)
	require.Len(t, judicial.Years, 2)
	assert.Equal(t, "2022", judicial.Years[0].Year)

	y := judicial.Years[1]
	assert.Equal(t, 3, y.HeadCount)
	assert.True(t, decimal.NewFromInt(40500+55000+61000).Equal(y.Wages), y.Wages.String())
	assert.Equal(t, []registry.Bucket{
		{Range: "30000-49999", Count: 1},
		{Range: "50000-69999", Count: 2},
	}, y.Salary)
	assert.True(t, decimal.NewFromInt(156500+24000).Equal(judicial.Compensation["2023"]))
	assert.True(t, decimal.NewFromInt(156500+24000).Equal(y.Compensation), y.Compensation.String())

	water := res.Entities[1]
	require.Len(t, water.Years, 1)
	assert.Equal(t, []registry.Bucket{{Range: "0-29999", Count: 1}}, water.Years[0].Salary)
}

func TestReadDelimiterAndColumns(t *testing.T) {
	input := "yr;agency;base\n2021;Judicial Branch;75000\n"
	opts := workforce.Options{
		Delimiter: ';',
		Columns:   workforce.Columns{Year: "yr", EntityName: "agency", BasePay: "base", Pay: []string{"overtime"}},
	}
	res, err := workforce.Read(context.Background(), strings.NewReader(input), "semi.csv", opts)
	require.NoError(t, err)
	require.Len(t, res.Entities, 1)
	assert.Equal(t, 1, res.Entities[0].Years[0].HeadCount)
	assert.Equal(t, "70000-89999", res.Entities[0].Years[0].Salary[0].Range)
}

func TestReadMissingColumn(t *testing.T) {
	_, err := workforce.Read(context.Background(), strings.NewReader("Year,Name\n2023,x\n"), "bad.csv", workforce.DefaultOptions())
	require.Error(t, err)
	assert.True(t, errors.IsStructureError(err))
}

func TestReadEmpty(t *testing.T) {
	res, err := workforce.Read(context.Background(), strings.NewReader(""), "empty.csv", workforce.DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, res.Entities)
}

func TestReadLogsOutOfRange(t *testing.T) {
	tl := logging.NewTestLogger(t)
	ctx := logging.WithLogger(context.Background(), tl.Logger)
	input := "Year,DepartmentOrSubdivision,RegularPay\n2023,Judicial Branch,900000\n"
	res, err := workforce.Read(ctx, strings.NewReader(input), "big.csv", workforce.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, res.OutOfRange)
	assert.Equal(t, "200000-499999", res.Entities[0].Years[0].Salary[0].Range)
	assert.True(t, tl.Contains("Wages outside salary buckets"))
}

func TestParseMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"$1,234.50", "1234.5", true},
		{"", "0", true},
		{"-", "0", true},
		{"-12", "-12", true},
		{"12x", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := workforce.ParseMoney(tt.in)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}
