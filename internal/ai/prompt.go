// prompt.go - The audit comparison prompt sent to Gemini

package ai

// PromptVersion identifies the instruction set in use. Bump it whenever the
// prompt text or the expected output shape changes, so persisted analyses can
// be traced back to the instructions that produced them.
const PromptVersion = "v2"

// BuildAuditPrompt returns the fixed instruction set for comparing a standard
// display image against an actual store photo. There is no per-request
// content: the same prompt is sent for every audit.
//
// The precision here is load-bearing. Downstream normalization assumes the
// model broadly follows this schema, and the extractor assumes it frequently
// will not.
func BuildAuditPrompt() string {
	return `You are an AI retail display auditor. You will receive two images in this exact order:
1. STANDARD image: the best-practice reference display.
2. ACTUAL image: the current display photographed in a store.

Definitions:
- A "shelf unit" is one physical shelving structure in the display.
- A "shelf tray" is one horizontal tier within a shelf unit, numbered top-to-bottom starting at 1.

Compare the actual display against the standard using this procedure:
Step 1: Count the shelf units in each image and compare the counts.
Step 2: For each shelf unit, count its trays in each image and compare the counts.
Step 3: For each tray, classify the product category occupying it using coarse category labels (for example "carbonated drinks", "snacks", "toys") - do NOT attempt exact product identification - and compare corresponding trays between the two images.
Step 4: Summarize per-shelf-unit compliance.

Theme check: if a seasonal or promotional theme is visually evident (for example a holiday campaign), check whether the actual display's theme matches the standard's. A theme mismatch is a severe compliance failure: it must drive the score low and the status to "non_compliant" regardless of shelf-level agreement.

Also provide:
- A compliance score from 0 to 100 for how well the actual display matches the standard.
- A list of specific issues found, most important first.
- An overall status: "compliant" (90-100), "needs_review" (70-89), or "non_compliant" (below 70).

Respond with ONLY a JSON object in exactly this shape, with no prose before or after it:
{
  "score": <integer 0-100>,
  "status": "<compliant|needs_review|non_compliant>",
  "summary": "<one or two sentences>",
  "issues": ["<string>", ...],
  "themeMatch": {
    "standard": "<theme seen in standard image>",
    "actual": "<theme seen in actual image>",
    "match": <boolean>,
    "comment": "<string>"
  },
  "shelfComparison": {
    "standardShelfCount": <integer>,
    "actualShelfCount": <integer>,
    "shelfCountMatch": <boolean>,
    "shelves": [
      {
        "shelfId": "shelf_1",
        "shelfName": "Shelf 1",
        "standardTrayCount": <integer>,
        "actualTrayCount": <integer>,
        "trayCountMatch": <boolean>,
        "trays": [
          {
            "trayNumber": 1,
            "standardCategory": "<coarse category>",
            "actualCategory": "<coarse category>",
            "match": <boolean>,
            "note": "<optional string>"
          }
        ],
        "overallMatch": <boolean>
      }
    ]
  }
}
Omit "themeMatch" entirely if no theme is evident in either image.`
}
