// Package pix builds BR Code payloads for PIX charges and verifies the
// signatures PIX providers put on webhook calls.
package pix

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
)

// EMV-MPM field ids used by the BR Code.
const (
	idPayloadFormat     = "00"
	idPointOfInitiation = "01"
	idMerchantAccount   = "26"
	idMerchantCategory  = "52"
	idCurrency          = "53"
	idAmount            = "54"
	idCountry           = "58"
	idMerchantName      = "59"
	idMerchantCity      = "60"
	idAdditionalData    = "62"
	idCRC               = "63"

	idGUI         = "00"
	idKey         = "01"
	idDescription = "02"
	idTxID        = "05"

	pixGUI         = "br.gov.bcb.pix"
	currencyBRL    = "986"
	maxNameLength  = 25
	maxCityLength  = 15
	maxTxIDLength  = 25
	defaultTxID    = "***"
	maxFieldLength = 99
)

var ErrMalformedPayload = errors.New("malformed BR Code payload")

// Payload describes a single PIX charge.
type Payload struct {
	Key          string
	MerchantName string
	MerchantCity string
	TxID         string
	Description  string
	Amount       decimal.Decimal
	// Reusable marks a static code; one-time codes use point of initiation 12.
	Reusable bool
}

// String renders the payload with its trailing CRC.
func (p Payload) String() string {
	var sb strings.Builder

	sb.WriteString(field(idPayloadFormat, "01"))
	if p.Reusable {
		sb.WriteString(field(idPointOfInitiation, "11"))
	} else {
		sb.WriteString(field(idPointOfInitiation, "12"))
	}

	account := field(idGUI, pixGUI) + field(idKey, p.Key)
	if room := maxFieldLength - len(account) - 4; room > 0 {
		if desc := sanitize(p.Description, room); desc != "" {
			account += field(idDescription, desc)
		}
	}
	sb.WriteString(field(idMerchantAccount, account))

	sb.WriteString(field(idMerchantCategory, "0000"))
	sb.WriteString(field(idCurrency, currencyBRL))
	if p.Amount.IsPositive() {
		sb.WriteString(field(idAmount, p.Amount.StringFixed(2)))
	}
	sb.WriteString(field(idCountry, "BR"))
	sb.WriteString(field(idMerchantName, sanitize(p.MerchantName, maxNameLength)))
	sb.WriteString(field(idMerchantCity, sanitize(p.MerchantCity, maxCityLength)))

	txid := sanitizeTxID(p.TxID)
	sb.WriteString(field(idAdditionalData, field(idTxID, txid)))

	// CRC covers everything up to and including its own id and length.
	sb.WriteString(idCRC + "04")
	body := sb.String()
	return body + fmt.Sprintf("%04X", CRC16(body))
}

// QRCodePNG renders the payload as a base64 PNG.
func (p Payload) QRCodePNG(size int) (string, error) {
	return QRCode(p.String(), size)
}

// QRCode renders an already built BR Code as a base64 PNG.
func QRCode(code string, size int) (string, error) {
	png, err := qrcode.Encode(code, qrcode.Medium, size)
	if err != nil {
		return "", fmt.Errorf("encode qr code: %w", err)
	}
	return base64.StdEncoding.EncodeToString(png), nil
}

// CRC16 is CRC-16/CCITT-FALSE: poly 0x1021, init 0xFFFF, no reflection.
func CRC16(data string) uint16 {
	crc := uint16(0xFFFF)
	for i := 0; i < len(data); i++ {
		crc ^= uint16(data[i]) << 8
		for bit := 0; bit < 8; bit++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// Parse splits a payload into its top-level fields and checks the CRC.
func Parse(payload string) (map[string]string, error) {
	if len(payload) < 8 {
		return nil, ErrMalformedPayload
	}

	crcStart := len(payload) - 4
	want, err := strconv.ParseUint(payload[crcStart:], 16, 16)
	if err != nil {
		return nil, ErrMalformedPayload
	}
	if CRC16(payload[:crcStart]) != uint16(want) {
		return nil, fmt.Errorf("%w: crc mismatch", ErrMalformedPayload)
	}

	return ParseFields(payload)
}

// ParseFields decodes one level of id/length/value triples.
func ParseFields(data string) (map[string]string, error) {
	fields := make(map[string]string)
	for i := 0; i < len(data); {
		if i+4 > len(data) {
			return nil, ErrMalformedPayload
		}
		id := data[i : i+2]
		n, err := strconv.Atoi(data[i+2 : i+4])
		if err != nil || i+4+n > len(data) {
			return nil, ErrMalformedPayload
		}
		fields[id] = data[i+4 : i+4+n]
		i += 4 + n
	}
	return fields, nil
}

func field(id, value string) string {
	return fmt.Sprintf("%s%02d%s", id, len(value), value)
}

// sanitize keeps printable ASCII and truncates to max.
func sanitize(value string, max int) string {
	var sb strings.Builder
	for _, r := range value {
		if r >= 0x20 && r < 0x7f {
			sb.WriteRune(r)
		}
	}
	out := strings.TrimSpace(sb.String())
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out
}

func sanitizeTxID(txid string) string {
	var sb strings.Builder
	for _, r := range txid {
		if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
	}
	out := sb.String()
	if out == "" {
		return defaultTxID
	}
	if len(out) > maxTxIDLength {
		out = out[:maxTxIDLength]
	}
	return out
}
