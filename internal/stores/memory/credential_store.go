package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/flowbaker/regcheck/internal/domain"
)

type credentialKey struct {
	accountID      string
	credentialType domain.CredentialType
}

type credentialEntry struct {
	credential domain.Credential
	sequence   uint64
}

// CredentialStore keeps credentials in process memory. A single mutex
// serializes every write so the (account, type) uniqueness check and the
// insert happen atomically.
type CredentialStore struct {
	mu       sync.RWMutex
	entries  map[credentialKey]credentialEntry
	sequence uint64
}

func NewCredentialStore() *CredentialStore {
	return &CredentialStore{
		entries: make(map[credentialKey]credentialEntry),
	}
}

func (s *CredentialStore) Insert(ctx context.Context, credential domain.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := credentialKey{accountID: credential.AccountID, credentialType: credential.Type}
	if _, exists := s.entries[key]; exists {
		return domain.ErrDuplicateCredential
	}

	s.sequence++
	s.entries[key] = credentialEntry{
		credential: clone(credential),
		sequence:   s.sequence,
	}

	return nil
}

func (s *CredentialStore) Get(ctx context.Context, accountID string, credentialType domain.CredentialType) (domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[credentialKey{accountID: accountID, credentialType: credentialType}]
	if !ok {
		return domain.Credential{}, domain.ErrNotFound
	}

	return clone(entry.credential), nil
}

func (s *CredentialStore) List(ctx context.Context, accountID string) ([]domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []credentialEntry
	for key, entry := range s.entries {
		if key.accountID == accountID {
			entries = append(entries, entry)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].sequence < entries[j].sequence
	})

	credentials := make([]domain.Credential, 0, len(entries))
	for _, entry := range entries {
		credentials = append(credentials, clone(entry.credential))
	}

	return credentials, nil
}

// Replace keeps the original creation sequence.
func (s *CredentialStore) Replace(ctx context.Context, credential domain.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := credentialKey{accountID: credential.AccountID, credentialType: credential.Type}

	entry, ok := s.entries[key]
	if !ok {
		return domain.ErrNotFound
	}

	entry.credential = clone(credential)
	s.entries[key] = entry

	return nil
}

func (s *CredentialStore) Delete(ctx context.Context, accountID string, credentialType domain.CredentialType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := credentialKey{accountID: accountID, credentialType: credentialType}
	if _, ok := s.entries[key]; !ok {
		return domain.ErrNotFound
	}

	delete(s.entries, key)

	return nil
}

// clone detaches the mutable fields so callers cannot alter stored state.
func clone(credential domain.Credential) domain.Credential {
	credential.Password = ""

	if credential.SealedPassword != nil {
		credential.SealedPassword = append([]byte(nil), credential.SealedPassword...)
	}

	if credential.Errors != nil {
		errs := make(domain.FieldErrors, len(credential.Errors))
		for field, messages := range credential.Errors {
			errs[field] = append([]string(nil), messages...)
		}

		credential.Errors = errs
	}

	return credential
}
