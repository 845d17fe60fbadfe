package statement

import (
	"strings"
	"testing"

	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleExport = `Data;Tipo;Descricao;Valor;Codigo da transacao
01/03/2025;Pix;Pix recebido Joao;1234,56;E0001
02/03/2025;Cartão de débito;Mercado Central;-89,90;E0002
03/03/2025;Transferência;Netflix;-39,90;
`

func TestParse_Sample(t *testing.T) {
	records := Parse(sampleExport)
	require.Len(t, records, 3)

	assert.Equal(t, "E0001", records[0].RawSourceID)
	assert.Equal(t, "01/03/2025", records[0].Date)
	assert.Equal(t, "Pix", records[0].Type)
	assert.Equal(t, "Pix recebido Joao", records[0].Description)
	assert.True(t, records[0].Amount.Equal(decimal.RequireFromString("1234.56")))

	assert.Equal(t, "Mercado Central", records[1].Description)
	assert.True(t, records[1].Amount.Equal(decimal.RequireFromString("-89.90")))

	assert.Empty(t, records[2].RawSourceID)
}

func TestParse_HeaderOnlyYieldsEmpty(t *testing.T) {
	for _, input := range []string{"", "   \n", "data;tipo;descricao;valor\n"} {
		records := Parse(input)
		assert.NotNil(t, records)
		assert.Empty(t, records, "input %q", input)
	}
}

func TestParse_ColumnOrderFollowsHeader(t *testing.T) {
	input := "VALOR;codigo da transacao;DESCRICAO;tipo;data\n-10,00;X1;Spotify;Débito;05/04/2025\n"

	records := Parse(input)
	require.Len(t, records, 1)

	assert.Equal(t, "05/04/2025", records[0].Date)
	assert.Equal(t, "Débito", records[0].Type)
	assert.Equal(t, "Spotify", records[0].Description)
	assert.Equal(t, "X1", records[0].RawSourceID)
	assert.True(t, records[0].Amount.Equal(decimal.RequireFromString("-10")))
}

func TestParse_SkipsShortRows(t *testing.T) {
	input := "data;tipo;descricao;valor\n01/01/2025;Pix;only three\n02/01/2025;Pix;Vendas;50,00\n"

	records := Parse(input)
	require.Len(t, records, 1)
	assert.Equal(t, "Vendas", records[0].Description)
}

func TestParse_MissingIdentifierColumn(t *testing.T) {
	input := "data;tipo;descricao;valor\n01/01/2025;Pix;Vendas;50,00\n"

	records := Parse(input)
	require.Len(t, records, 1)
	assert.Empty(t, records[0].RawSourceID)
}

func TestParse_UnparsableAmountIsZero(t *testing.T) {
	input := "data;tipo;descricao;valor\n01/01/2025;Pix;Vendas;abc\n"

	records := Parse(input)
	require.Len(t, records, 1)
	assert.True(t, records[0].Amount.IsZero())
}

func TestParse_CRLFAndBOM(t *testing.T) {
	input := "\ufeffdata;tipo;descricao;valor\r\n01/01/2025;Pix;Vendas;7,5\r\n"

	records := Parse(input)
	require.Len(t, records, 1)
	assert.True(t, records[0].Amount.Equal(decimal.RequireFromString("7.5")))
}

func TestParse_UnterminatedQuoteOnlyCostsItsLine(t *testing.T) {
	input := "data;tipo;descricao;valor;codigo da transacao\n" +
		"01/03/2025;Pix;\"Loja do Ze;-10,00;A1\n" +
		"02/03/2025;Pix;Mercado Central;-89,90;A2\n" +
		"03/03/2025;Pix;Vendas;50,00;A3\n"

	records := Parse(input)
	require.Len(t, records, 2)
	assert.Equal(t, "A2", records[0].RawSourceID)
	assert.Equal(t, "Mercado Central", records[0].Description)
	assert.Equal(t, "A3", records[1].RawSourceID)
	assert.True(t, records[1].Amount.Equal(decimal.RequireFromString("50")))
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"decimal comma", "1234,56", "1234.56"},
		{"negative", "-89,90", "-89.90"},
		{"thousands separator", "1.234,56", "1234.56"},
		{"currency prefix", "R$ 10,00", "10"},
		{"negative currency", "-R$ 10,00", "-10"},
		{"period only", "12.5", "12.5"},
		{"integer", "300", "300"},
		{"empty", "", "0"},
		{"garbage", "n/a", "0"},
		{"lone minus", "-", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAmount(tt.raw)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "ParseAmount(%q) = %s, want %s", tt.raw, got, tt.want)
		})
	}
}

func TestParseFile_Windows1252(t *testing.T) {
	// "Cartão de débito" encoded as Windows-1252.
	content := []byte("data;tipo;descricao;valor\n01/01/2025;Cart\xe3o de d\xe9bito;Padaria;-5,00\n")

	records, err := ParseFile(domain.ImportFile{Filename: "extrato.csv", Content: content})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Cartão de débito", records[0].Type)
}

const sampleOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20250101120000
<LANGUAGE>POR
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>BRL
<BANKACCTFROM>
<BANKID>0260
<ACCTID>123456
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20250101000000
<DTEND>20250131235959
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20250105120000
<TRNAMT>-50.00
<FITID>TXN001
<NAME>Mercado Bom Preco
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20250115120000
<TRNAMT>1000.00
<FITID>TXN002
<MEMO>Vendas janeiro
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>2000.00
<DTASOF>20250131235959
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

func TestParseOFX_BankStatement(t *testing.T) {
	records, err := ParseOFX(strings.NewReader(sampleOFX))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "TXN001", records[0].RawSourceID)
	assert.Equal(t, "05/01/2025", records[0].Date)
	assert.Equal(t, "Mercado Bom Preco", records[0].Description)
	assert.True(t, records[0].Amount.Equal(decimal.RequireFromString("-50")))

	assert.Equal(t, "Vendas janeiro", records[1].Description)
	assert.True(t, records[1].Amount.Equal(decimal.RequireFromString("1000")))
}

func TestParseFile_DispatchesOnExtension(t *testing.T) {
	records, err := ParseFile(domain.ImportFile{Filename: "JAN.OFX", Content: []byte(sampleOFX)})
	require.NoError(t, err)
	assert.Len(t, records, 2)

	_, err = ParseFile(domain.ImportFile{Filename: "broken.ofx", Content: []byte("not ofx")})
	assert.Error(t, err)
}
