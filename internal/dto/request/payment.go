package request

type CreatePaymentRequest struct {
	BookingID string `json:"booking_id" validate:"required,uuid"`
}

// PIXWebhookRequest is the notification body PIX providers post, one entry per settled charge.
type PIXWebhookRequest struct {
	Pix []PIXWebhookEntry `json:"pix"`
}

type PIXWebhookEntry struct {
	EndToEndID string `json:"endToEndId"`
	TxID       string `json:"txid"`
	Amount     string `json:"valor"`
	PaidAt     string `json:"horario"`
}

type RetryListRequest struct {
	Status *string `validate:"omitempty,oneof=pending processing completed failed"`
	PaginatedRequest
}
