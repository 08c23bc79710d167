package descriptions

// Tool descriptions shown to MCP clients

const (
	ProcessDocumentDescription = `Run a scanned visa document through the full intake pipeline.

**When to use:** A new passport, application form or supporting document arrives and needs to become a validated applicant profile with a review decision.

**What happens:** The document is routed to the extraction backends by type and quality, labels are matched onto the canonical schema, values are normalized, validation rules and country policy are applied, and a review action (auto_approve, spot_check or full_review) is computed. When a form template and field map are given, the destination form is filled unless the application needs a full review.

**Examples:**
• "Process passports/smith.pdf as a passport for travel to ARE on 2025-07-01"
• "Process forms/application-0042.pdf and fill templates/ds160.pdf with the result"

**Workflow:** visa_inspect_form on the template → visa_process_document with fill_template and field_map → check decision and fill summary.`

	ProcessBatchDescription = `Run several documents of the same type through the intake pipeline at once.

**When to use:** A family or group submits a stack of passports together. Each document gets its own report; a failed document is listed with its error and does not stop the rest.

**Examples:**
• "Process passports/a.pdf, passports/b.pdf and passports/c.pdf for travel to JPN"`

	ExtractDocumentDescription = `Extract labeled fields from a document without validating them.

**When to use:** You want to see what the extraction backends return for a document, including which backend produced the result and every attempt that was made.

**Examples:**
• "Extract fields from scans/passport-page.jpg as a passport"
• "Show which backend handled supporting/bank-letter.pdf"`

	MatchLabelDescription = `Map a free-text form label onto the canonical applicant schema.

**When to use:** Checking how a label such as "D.O.B." or "Surname" will be interpreted, or finding candidates for a label that did not match.

**Examples:**
• "Which canonical field is 'Passport No'?"
• "Suggest fields for 'Name of Father'"`

	CountryRulesDescription = `Look up the policy data for a destination country.

**When to use:** Checking passport validity requirements, date/address/name formats and documentary requirements for a destination. Unknown codes return the documented defaults.

**Examples:**
• "What passport validity does USA require?"
• "Which date format does ARE use on its forms?"`

	EvaluateApplicationDescription = `Validate an applicant profile against the rule set and country policy.

**When to use:** The profile is already known (for example after manual correction) and you need the validation issues and a review decision without re-extracting.

**Input:** fields is a JSON object keyed by canonical path, for example {"passport.number":"X1234567","personalDetails.dateOfBirth":"1990-01-15"}.

**Examples:**
• "Evaluate this corrected profile for travel to GBR on 2025-09-01"`

	ValidateFormDescription = `Run the pre-flight checks on a fillable PDF template.

**When to use:** Before filling a destination form. Encrypted templates and templates without fillable fields are rejected; very large forms produce warnings.`

	InspectFormDescription = `List the fields of a fillable PDF template.

**When to use:** Building a field map from canonical paths to form field names. Each field reports its kind, options, pages and whether it is read-only.`

	FillFormDescription = `Fill a PDF template from an applicant profile and write the result.

**Input:** fields maps canonical paths to values, field_map maps canonical paths to form field names. Values are transformed for the destination country before they are written.

**Result:** Fields that could not be written are listed with the reason. The output file is only written when more than the required share of fields was populated.`

	ServerInfoDescription = `Show server configuration, configured backends and the available tools.

**When to use:** Start here to learn which extraction backends are reachable, the document directory, and how the other tools fit together.`
)
