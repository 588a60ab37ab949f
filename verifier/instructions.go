package verifier

import (
	"fmt"

	"github.com/cmmshub/verification-backend/models"
	"github.com/cmmshub/verification-backend/token"
)

// Instructions are the human-facing steps a tenant follows to complete the
// proof. Rendering them never mutates state.
type Instructions struct {
	Domain         string   `json:"domain"`
	FileName       string   `json:"file_name"`
	FileContent    string   `json:"file_content"`
	UploadURL      string   `json:"upload_url"`
	DNSRecordName  string   `json:"dns_record_name"`
	DNSRecordValue string   `json:"dns_record_value"`
	DNSCNAMETarget string   `json:"dns_cname_target"`
	Steps          []string `json:"steps"`
}

// Instructions renders the proof steps for a record.
func (v *Verifier) Instructions(recordID string) (Instructions, error) {
	record, err := v.Record(recordID)
	if err != nil {
		return Instructions{}, err
	}
	return buildInstructions(record), nil
}

func buildInstructions(record models.VerificationRecord) Instructions {
	uploadURL := fmt.Sprintf("https://%s/%s", record.Domain, record.ResourceName)
	dnsHost := token.DNSHost(record.Domain)
	txtValue := token.TXTValue(record.Token)
	return Instructions{
		Domain:         record.Domain,
		FileName:       record.ResourceName,
		FileContent:    record.Token,
		UploadURL:      uploadURL,
		DNSRecordName:  dnsHost,
		DNSRecordValue: txtValue,
		DNSCNAMETarget: token.CNAMETarget(record.Token),
		Steps: []string{
			fmt.Sprintf("Create a file named %s containing exactly: %s", record.ResourceName, record.Token),
			fmt.Sprintf("Upload it to your web root so it is served at %s", uploadURL),
			fmt.Sprintf("Alternatively, add a DNS TXT record at %s with the value %s", dnsHost, txtValue),
			fmt.Sprintf("Or point a CNAME at %s to %s", dnsHost, token.CNAMETarget(record.Token)),
			"Request a check, or wait for the next automatic sweep.",
		},
	}
}
