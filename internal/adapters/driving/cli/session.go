package cli

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
)

var (
	sessionID       int64
	sessionUnit     string
	sessionRTO      string
	sessionType     string
	sessionDocType  string
	sessionStoreRef string
	sessionDocs     []string
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage validation sessions",
}

var sessionCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a pending session",
	Long: `Creates a pending validation session for local runs. Sessions are normally
created by the upstream application; this command registers one directly.

Documents are given as storage paths, optionally prefixed with a display name:

  compliance session create --id 42 --unit BSBOPS304 --type full_unit \
    --doc uploads/42/assessment.pdf --doc "Marking Guide=uploads/42/guide.docx"`,
	RunE: runSessionCreate,
}

func init() {
	f := sessionCreateCmd.Flags()
	f.Int64Var(&sessionID, "id", 0, "validation detail id")
	f.StringVar(&sessionUnit, "unit", "", "unit code")
	f.StringVar(&sessionRTO, "rto", "", "training organisation code")
	f.StringVar(&sessionType, "type", string(domain.RequirementFullUnit), "requirement type")
	f.StringVar(&sessionDocType, "doc-type", "", "document type (assessment or learner_guide)")
	f.StringVar(&sessionStoreRef, "store-ref", "", "managed grounding document store reference")
	f.StringArrayVar(&sessionDocs, "doc", nil, "document storage path, optionally name=path (repeatable)")
	_ = sessionCreateCmd.MarkFlagRequired("id")
	_ = sessionCreateCmd.MarkFlagRequired("unit")

	sessionCmd.AddCommand(sessionCreateCmd)
	rootCmd.AddCommand(sessionCmd)
}

func runSessionCreate(cmd *cobra.Command, _ []string) error {
	svc, err := sessionQuery()
	if err != nil {
		return err
	}
	reqType, err := domain.ParseRequirementType(sessionType)
	if err != nil {
		return fmt.Errorf("unknown requirement type %q: %w", sessionType, err)
	}

	session := &domain.ValidationSession{
		ID:              sessionID,
		UnitCode:        sessionUnit,
		RTOCode:         sessionRTO,
		RequirementType: reqType,
		DocumentType:    domain.DocumentType(sessionDocType),
		StoreRef:        sessionStoreRef,
		CreatedAt:       time.Now(),
	}
	for i, spec := range sessionDocs {
		session.Documents = append(session.Documents, parseDocumentFlag(i, spec))
	}

	if err := svc.Create(cmd.Context(), session); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	cmd.Printf("Created session %d (%s, %s) with %d document(s)\n",
		session.ID, session.UnitCode, session.RequirementType, len(session.Documents))
	return nil
}

// parseDocumentFlag reads "path" or "name=path".
func parseDocumentFlag(index int, spec string) domain.SessionDocument {
	name, storagePath, ok := strings.Cut(spec, "=")
	if !ok {
		storagePath = spec
		name = path.Base(spec)
	}
	return domain.SessionDocument{
		ID:          fmt.Sprintf("doc-%d", index+1),
		Filename:    strings.TrimSpace(name),
		StoragePath: strings.TrimSpace(storagePath),
	}
}
