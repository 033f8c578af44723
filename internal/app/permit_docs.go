package app

import "permit-agent/internal/ai"

const (
	// ModelID is the chat model every session talks to.
	ModelID = "llama-4-scout-17b-16e-w4a16"

	embeddingModel     = "all-MiniLM-L6-v2"
	embeddingDimension = 384
	chunkSizeInTokens  = 1024

	vectorDBPrefix = "permit-db-"
)

const systemPrompt = `You are an expert City Permitting AI Agent for Denver food truck permits.

Your responsibilities:
1. Review permit applications for completeness and accuracy
2. Check compliance with Denver food truck regulations
3. Identify missing information or errors
4. Provide clear, actionable feedback with specific regulation references
5. Generate evaluation scorecards with scores from 0-100

Always be professional, thorough, and cite specific regulations when providing feedback.`

// DefaultSessionPrompt is the seed conversation for every new session.
func DefaultSessionPrompt() []ai.ChatMessage {
	return []ai.ChatMessage{
		{Role: "system", Content: systemPrompt},
	}
}

// docSource describes one reference document and the candidate URLs to fetch
// it from, tried in order.
type docSource struct {
	ID          string
	Description string
	URLs        []string
}

var permitDocSources = []docSource{
	{
		ID:          "food_rules_2017",
		Description: "Denver Food Rules and Regulations April 2017",
		URLs: []string{
			"https://www.denvergov.org/files/assets/public/public-health-and-environment/documents/phi/food/revisedfoodrulesandregulationsapril2017compressed.pdf",
			"http://denvergov.org/content/dam/denvergov/Portals/771/documents/PHI/Food/RevisedFoodRulesandregulationsApril2017compressed.pdf",
		},
	},
	{
		ID:          "mobile_unit_guide_2022",
		Description: "Denver Mobile Unit Guide 2022",
		URLs: []string{
			"https://denver.prelive.opencities.com/files/assets/public/v/1/public-health-and-environment/documents/phi/2022_mobileunitguide.pdf",
		},
	},
}

// fallbackPermitContent guarantees ingestion always has at least one document
// even when every reference PDF is unreachable.
const fallbackPermitContent = `DENVER MOBILE FOOD TRUCK PERMIT REQUIREMENTS

LICENSE REQUIREMENTS:
- City and County of Denver 'Retail Food Establishment-Mobile' license required
- Complete Mobile Plan Review Packet submission
- Processing time: 30 days during busy season
- Annual renewal required

WATER SYSTEM REQUIREMENTS:
- Hand washing sink: minimum 10 inches wide x 10 inches long x 5 inches deep
- Water temperature: 100°F to 120°F at the faucet
- Soap and single-use paper towels required at all times
- Minimum 10 gallons clean water tank OR 3 gallons per hour of operation (whichever is greater)
- Wastewater tank must be at least 15% larger than clean water tank
- All water tanks must be NSF-approved and labeled

COMMISSARY REQUIREMENTS:
- Must operate from an approved commissary facility
- Report to commissary daily for food preparation, cleaning, and servicing
- Affidavit of Commissary form required
- Commissary must be licensed by Denver or approved jurisdiction

LOCATION RESTRICTIONS:
- Cannot operate in Central Business District without special permit
- 300 feet minimum from public parks (unless during special event with permission)
- 200 feet minimum from other food trucks
- 200 feet minimum from eating/drinking establishments (unless written consent)
- 50 feet minimum from residential zoning districts
- Cannot block fire hydrants, crosswalks, or handicap access

EQUIPMENT REQUIREMENTS:
- Fire suppression system required for equipment producing grease-laden vapors
- Type I hood system required for grills, fryers, etc.
- Commercial-grade equipment only (no residential appliances)
- All equipment must be NSF or equivalent certified
- Adequate ventilation system required

FOOD SAFETY REQUIREMENTS:
- All food stored minimum 6 inches above ground
- Cold potentially hazardous food: 41°F or below
- Hot potentially hazardous food: 135°F or above
- Accurate thermometers required (± 2°F accuracy)
- Food protection from contamination at all times
- No bare hand contact with ready-to-eat foods

STRUCTURAL REQUIREMENTS:
- Floors: smooth, non-absorbent, easily cleanable
- Walls and ceilings: light-colored, smooth, easily cleanable
- Adequate lighting: minimum 10 foot-candles on food prep surfaces
- Sneeze guards required for customer self-service
- Waste containers with lids required

DOCUMENTATION REQUIRED FOR PERMIT:
1. Completed application form with fees
2. Vehicle registration and proof of ownership
3. Insurance certificate (general liability)
4. Commissary affidavit (signed by commissary owner)
5. Mobile unit floor plan (to scale)
6. Equipment specification sheets
7. Menu list
8. Water system diagram
9. Waste disposal plan
10. Certified food manager certificate (at least one per unit)

INSPECTION REQUIREMENTS:
- Initial inspection required before permit issuance
- Routine unannounced inspections throughout operation
- Must maintain score of 80 or above
- Critical violations must be corrected immediately
- Re-inspection fee applies for follow-up inspections

FEES (Subject to change):
- New mobile unit application: varies by unit type
- Annual renewal: varies by unit type
- Re-inspection fee: if applicable
- Late renewal penalty: if applicable`
