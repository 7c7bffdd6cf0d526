package gateway

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"evrental-backend/internal/domain"
	"evrental-backend/internal/utils"
)

const (
	dateLayout   = "20060102150405"
	paramPrefix  = "vnp_"
	currencyCode = "VND"
	commandPay   = "pay"
)

// Config holds merchant settings for the redirect gateway.
type Config struct {
	PayURL      string
	TmnCode     string
	HashSecret  string
	ReturnURL   string
	Version     string
	Locale      string
	OrderType   string
	Location    *time.Location
	ExpireAfter time.Duration
}

type VNPay struct {
	cfg Config
}

func NewVNPay(cfg Config) (*VNPay, error) {
	if cfg.PayURL == "" || cfg.TmnCode == "" || cfg.HashSecret == "" {
		return nil, fmt.Errorf("gateway: pay url, merchant code and hash secret are required")
	}
	if cfg.Version == "" {
		cfg.Version = "2.1.0"
	}
	if cfg.Locale == "" {
		cfg.Locale = "vn"
	}
	if cfg.OrderType == "" {
		cfg.OrderType = "other"
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &VNPay{cfg: cfg}, nil
}

// PaymentRequest describes one redirect to the gateway. Amount is VND.
type PaymentRequest struct {
	TxnRef    string
	Amount    int64
	OrderInfo string
	IPAddr    string
	CreatedAt time.Time
}

// Params returns the unsigned gateway parameters for req.
func (g *VNPay) Params(req PaymentRequest) map[string]string {
	created := req.CreatedAt.In(g.cfg.Location)
	p := map[string]string{
		"vnp_Version":    g.cfg.Version,
		"vnp_Command":    commandPay,
		"vnp_TmnCode":    g.cfg.TmnCode,
		"vnp_Amount":     strconv.FormatInt(utils.ToMinorUnits(req.Amount), 10),
		"vnp_CurrCode":   currencyCode,
		"vnp_TxnRef":     req.TxnRef,
		"vnp_OrderInfo":  req.OrderInfo,
		"vnp_OrderType":  g.cfg.OrderType,
		"vnp_Locale":     g.cfg.Locale,
		"vnp_ReturnUrl":  g.cfg.ReturnURL,
		"vnp_IpAddr":     req.IPAddr,
		"vnp_CreateDate": created.Format(dateLayout),
	}
	if g.cfg.ExpireAfter > 0 {
		p["vnp_ExpireDate"] = created.Add(g.cfg.ExpireAfter).Format(dateLayout)
	}
	return p
}

// BuildPaymentURL returns the signed redirect URL for req.
func (g *VNPay) BuildPaymentURL(req PaymentRequest) (string, error) {
	if req.TxnRef == "" || req.Amount <= 0 {
		return "", domain.Validationf("payment reference and positive amount are required")
	}
	if req.Amount > utils.MaxGatewayAmount {
		return "", domain.Validationf("amount %d exceeds the gateway limit", req.Amount)
	}
	canonical := Canonicalize(g.Params(req))
	return g.cfg.PayURL + "?" + canonical + "&" + SignatureField + "=" + Sign(canonical, g.cfg.HashSecret), nil
}

// Callback is a verified gateway callback.
type Callback struct {
	TxnRef            string
	AmountMinor       int64
	ResponseCode      string
	TransactionStatus string
	TransactionNo     string
	BankCode          string
	BankTxnNo         string
	CardType          string
	PayDate           string
}

// GatewayParams keeps only the gateway's own (vnp_-prefixed) parameters.
// Anything else on the query string is ignored.
func GatewayParams(values url.Values) map[string]string {
	out := make(map[string]string)
	for k := range values {
		if strings.HasPrefix(k, paramPrefix) {
			out[k] = values.Get(k)
		}
	}
	return out
}

// ParseCallback verifies the signature over values and extracts the fields
// reconciliation needs. A bad signature yields domain.ErrInvalidSignature.
func (g *VNPay) ParseCallback(values url.Values) (*Callback, error) {
	params := GatewayParams(values)
	if !Verify(params[SignatureField], Canonicalize(params), g.cfg.HashSecret) {
		return nil, domain.ErrInvalidSignature
	}

	cb := &Callback{
		TxnRef:            params["vnp_TxnRef"],
		ResponseCode:      params["vnp_ResponseCode"],
		TransactionStatus: params["vnp_TransactionStatus"],
		TransactionNo:     params["vnp_TransactionNo"],
		BankCode:          params["vnp_BankCode"],
		BankTxnNo:         params["vnp_BankTranNo"],
		CardType:          params["vnp_CardType"],
		PayDate:           params["vnp_PayDate"],
	}
	if cb.TxnRef == "" || cb.ResponseCode == "" {
		return nil, domain.Validationf("callback is missing reference or response code")
	}
	amount, err := strconv.ParseInt(params["vnp_Amount"], 10, 64)
	if err != nil || amount < 0 {
		return nil, domain.Validationf("callback amount is malformed")
	}
	cb.AmountMinor = amount
	return cb, nil
}
