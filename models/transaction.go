package models

import (
	"crypto/rand"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal TransactionType = "WITHDRAWAL"
	TransactionTypeTransfer   TransactionType = "TRANSFER"
	TransactionTypeRefund     TransactionType = "REFUND"
	TransactionTypeCommission TransactionType = "COMMISSION"
	TransactionTypeBonus      TransactionType = "BONUS"
	TransactionTypeAdjustment TransactionType = "ADJUSTMENT"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
	TransactionStatusCancelled TransactionStatus = "CANCELLED"
)

// Transaction is a ledger row recording every balance movement.
type Transaction struct {
	ID            string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	TransactionID string `gorm:"uniqueIndex;size:50;not null" json:"transaction_id"`

	MemberAccountID string `gorm:"type:uuid;not null;index:idx_member_created,priority:1" json:"member_account_id"`
	MemberAccount   *User  `gorm:"foreignKey:MemberAccountID" json:"-"`

	Type       TransactionType   `gorm:"type:varchar(20);not null;index" json:"type"`
	Amount     decimal.Decimal   `gorm:"type:numeric(12,2);not null" json:"amount"`
	RemarkType *string           `gorm:"type:varchar(20)" json:"remark_type,omitempty"`
	Remark     *string           `json:"remark,omitempty"`
	Status     TransactionStatus `gorm:"type:varchar(20);default:'PENDING';index" json:"status"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index:idx_member_created,priority:2,sort:desc"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// BeforeCreate fills in a transaction id if the caller did not set one.
func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.TransactionID == "" {
		t.TransactionID = GenerateTransactionID()
	}
	return nil
}

const txnIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateTransactionID returns "TXN" followed by 12 random uppercase alphanumerics.
func GenerateTransactionID() string {
	b := make([]byte, 12)
	max := big.NewInt(int64(len(txnIDAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails if the OS entropy source is broken
			panic(err)
		}
		b[i] = txnIDAlphabet[n.Int64()]
	}
	return "TXN" + string(b)
}
