package enums

import (
	"fmt"
	"strings"
)

// DocumentType identifies the kind of business document used as a tenant's unique key.
type DocumentType string

const (
	DocumentTypeCPF  DocumentType = "CPF"
	DocumentTypeCNPJ DocumentType = "CNPJ"
)

// IsValid reports whether the value is known.
func (d DocumentType) IsValid() bool {
	return d == DocumentTypeCPF || d == DocumentTypeCNPJ
}

// ParseDocumentType converts raw input into a DocumentType.
func ParseDocumentType(value string) (DocumentType, error) {
	switch DocumentType(strings.ToUpper(strings.TrimSpace(value))) {
	case DocumentTypeCPF:
		return DocumentTypeCPF, nil
	case DocumentTypeCNPJ:
		return DocumentTypeCNPJ, nil
	}
	return "", fmt.Errorf("invalid document type %q", value)
}
