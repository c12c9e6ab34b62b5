// Package testing provides test utilities and database setup for testing the account service
package testing

import (
	"encoding/json"
	"fmt"
	"math/rand"

	"github.com/Icekid35/elementor-node-backend/models"
	"github.com/Icekid35/elementor-node-backend/utils"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// TestPassword is the plaintext behind every fixture account's hash
const TestPassword = "TestPass123"

// CreateTestAccount creates a test account of the given kind with a random
// business email. The account starts inactive, matching the signup flow.
func (tf *TestFixtures) CreateTestAccount(accountTypeName string) (*models.Account, error) {
	// Get account type
	var accountType models.AccountType
	err := tf.DB.DB.Where("type_name = ?", accountTypeName).Last(&accountType).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find account type %s: %w", accountTypeName, err)
	}

	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	randomDigits := fmt.Sprintf("%09d", rand.Intn(900000000)+100000000)

	profile, err := json.Marshal(map[string]any{
		"name": "Test Account",
		"city": "Berlin",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal profile: %w", err)
	}

	account := &models.Account{
		UUID:          uuid.New(),
		AccountTypeID: accountType.ID,
		BusinessEmail: utils.NormalizeEmail(fmt.Sprintf("test.%d.%s@example.com", accountType.ID, randomDigits)),
		PasswordHash:  string(hashedPassword),
		Active:        utils.ToPtr(false),
		Profile:       profile,
	}

	err = tf.DB.DB.Create(account).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create test account: %w", err)
	}

	account.AccountType = accountType
	return account, nil
}

// CreateTestAccountWithEmail creates a test account with a fixed business email
func (tf *TestFixtures) CreateTestAccountWithEmail(accountTypeName, businessEmail string) (*models.Account, error) {
	account, err := tf.CreateTestAccount(accountTypeName)
	if err != nil {
		return nil, err
	}

	account.BusinessEmail = utils.NormalizeEmail(businessEmail)
	if err := tf.DB.DB.Save(account).Error; err != nil {
		return nil, fmt.Errorf("failed to set business email: %w", err)
	}

	return account, nil
}

// CreateTestPaymentEvent records a payment event fixture
func (tf *TestFixtures) CreateTestPaymentEvent(eventID, eventType, customerEmail string) (*models.PaymentEvent, error) {
	payload, err := json.Marshal(map[string]any{
		"id":   eventID,
		"type": eventType,
		"data": map[string]any{
			"object": map[string]any{
				"customer_details": map[string]any{
					"email": customerEmail,
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	event := &models.PaymentEvent{
		EventID:       eventID,
		EventType:     eventType,
		CustomerEmail: utils.ToPtr(utils.NormalizeEmail(customerEmail)),
		Payload:       payload,
		Status:        models.PaymentEventStatusReceived,
	}

	if err := tf.DB.DB.Create(event).Error; err != nil {
		return nil, fmt.Errorf("failed to create test payment event: %w", err)
	}

	return event, nil
}
