package store

import (
	"sync"

	"github.com/cotarr/collab-auth-sub000/internal/models"
	"github.com/cotarr/collab-auth-sub000/internal/token"
)

// memoryTokenStore keeps token metadata in a map keyed by token identifier.
// A single mutex guards every operation; the existence check and the delete
// happen inside the same critical section, which gives the one-winner
// semantics for concurrent deletes of the same token.
type memoryTokenStore struct {
	mu      sync.Mutex
	records map[string]models.TokenRecord
	codec   *token.Codec
}

var _ TokenStore = (*memoryTokenStore)(nil)

func NewMemoryTokenStore(codec *token.Codec) TokenStore {
	return &memoryTokenStore{
		records: make(map[string]models.TokenRecord),
		codec:   codec,
	}
}

func (s *memoryTokenStore) tokenID(rawToken string) (string, bool) {
	claims, err := s.codec.Decode(rawToken)
	if err != nil {
		return "", false
	}
	return claims.ID, true
}

func (s *memoryTokenStore) Find(rawToken string) (*models.TokenRecord, error) {
	id, ok := s.tokenID(rawToken)
	if !ok {
		return nil, ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &record, nil
}

func (s *memoryTokenStore) Save(rawToken string, params TokenParams) (*models.TokenRecord, error) {
	id, ok := s.tokenID(rawToken)
	if !ok {
		return nil, ErrNotFound
	}

	record := models.TokenRecord{
		ID:        id,
		UserID:    params.UserID,
		ClientID:  params.ClientID,
		ExpiresAt: params.ExpiresAt,
		Scope:     models.StringArray(params.Scope),
		GrantType: params.GrantType,
		AuthTime:  params.AuthTime,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[id] = record
	return &record, nil
}

func (s *memoryTokenStore) Delete(rawToken string) (*models.TokenRecord, error) {
	id, ok := s.tokenID(rawToken)
	if !ok {
		return nil, ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(s.records, id)
	return &record, nil
}

func (s *memoryTokenStore) RemoveExpired() ([]models.TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []models.TokenRecord
	for id, record := range s.records {
		if record.IsExpired() {
			removed = append(removed, record)
			delete(s.records, id)
		}
	}
	return removed, nil
}

func (s *memoryTokenStore) RemoveAll() ([]models.TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := make([]models.TokenRecord, 0, len(s.records))
	for _, record := range s.records {
		removed = append(removed, record)
	}
	s.records = make(map[string]models.TokenRecord)
	return removed, nil
}

// memoryCodeStore keeps authorization codes in a map keyed by the code
// string. Same locking discipline as memoryTokenStore.
type memoryCodeStore struct {
	mu      sync.Mutex
	records map[string]models.AuthorizationCode
}

var _ CodeStore = (*memoryCodeStore)(nil)

func NewMemoryCodeStore() CodeStore {
	return &memoryCodeStore{records: make(map[string]models.AuthorizationCode)}
}

func (s *memoryCodeStore) Find(code string) (*models.AuthorizationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[code]
	if !ok {
		return nil, ErrNotFound
	}
	return &record, nil
}

func (s *memoryCodeStore) Save(record *models.AuthorizationCode) (*models.AuthorizationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.Code] = *record
	return record, nil
}

func (s *memoryCodeStore) Delete(code string) (*models.AuthorizationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[code]
	if !ok {
		return nil, ErrNotFound
	}
	delete(s.records, code)
	return &record, nil
}

func (s *memoryCodeStore) RemoveExpired() ([]models.AuthorizationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []models.AuthorizationCode
	for code, record := range s.records {
		if record.IsExpired() {
			removed = append(removed, record)
			delete(s.records, code)
		}
	}
	return removed, nil
}

func (s *memoryCodeStore) RemoveAll() ([]models.AuthorizationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := make([]models.AuthorizationCode, 0, len(s.records))
	for _, record := range s.records {
		removed = append(removed, record)
	}
	s.records = make(map[string]models.AuthorizationCode)
	return removed, nil
}
