package dto

// TransferRequest is the request body for initiating a transfer.
type TransferRequest struct {
	FromAccountID string  `json:"from_account_id" binding:"required,uuid"`
	ToAccountID   *string `json:"to_account_id,omitempty" binding:"omitempty,uuid"`
	Amount        int64   `json:"amount" binding:"required,gt=0"`
	Currency      string  `json:"currency" binding:"required,len=3,uppercase"`
	Description   *string `json:"description,omitempty" binding:"omitempty,max=255"`
}

// TransferResponse is the response body for transfer results.
type TransferResponse struct {
	ID            string  `json:"id"`
	FromAccountID string  `json:"from_account_id"`
	ToAccountID   *string `json:"to_account_id,omitempty"`
	Amount        int64   `json:"amount"`
	Currency      string  `json:"currency"`
	Fee           int64   `json:"fee"`
	TotalDebit    int64   `json:"total_debit"`
	Status        string  `json:"status"`
	Description   *string `json:"description,omitempty"`
	ReferenceCode string  `json:"reference_code"`
	FailureReason *string `json:"failure_reason,omitempty"`
	CreatedAt     string  `json:"created_at"`
	ProcessedAt   *string `json:"processed_at,omitempty"`
}
