package analysis

import (
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"propvalue/server/internal/models"
)

const notSpecified = "Not specified"

const systemInstruction = "You are an expert real estate market analyst. Always respond with valid JSON only, no additional text."

var printer = message.NewPrinter(language.English)

// BuildPrompt renders the analysis request for p. The output depends only on
// the property's attributes.
func BuildPrompt(p *models.Property) string {
	propertyType := strings.TrimSpace(p.PropertyType)
	if propertyType == "" {
		propertyType = models.DefaultPropertyType
	}

	yearBuilt := notSpecified
	if p.YearBuilt != nil && *p.YearBuilt != 0 {
		yearBuilt = strconv.Itoa(*p.YearBuilt)
	}

	var b strings.Builder
	b.WriteString("You are a real estate market analyst. Analyze the following property listing and provide insights:\n\n")
	b.WriteString("Property Details:\n")
	b.WriteString("- Location: " + p.Location + "\n")
	b.WriteString("- Size: " + formatNumber(p.Size) + " sq ft\n")
	b.WriteString("- Current Price: $" + formatMoney(p.Price) + "\n")
	b.WriteString("- Property Type: " + propertyType + "\n")
	b.WriteString("- Bedrooms: " + countOrNotSpecified(p.Bedrooms) + "\n")
	b.WriteString("- Bathrooms: " + countOrNotSpecified(p.Bathrooms) + "\n")
	b.WriteString("- Year Built: " + yearBuilt + "\n")
	b.WriteString(`
Please provide:
1. Estimated market value based on comparable properties in the area
2. Recommended listing price (if different from current price)
3. Price adjustment needed (positive or negative percentage)
4. Key insights about the property's pricing position in the market
5. Confidence level (High, Medium, Low) in your analysis
6. Comparative market analysis insights

Format your response as JSON with the following structure:
{
  "marketValue": <number>,
  "recommendedPrice": <number>,
  "priceAdjustment": <number (percentage)>,
  "insights": "<detailed insights string>",
  "confidence": "<High|Medium|Low>",
  "comparativeNotes": "<brief notes on comparable properties>"
}`)
	return b.String()
}

func countOrNotSpecified(v float64) string {
	if v == 0 {
		return notSpecified
	}
	return formatNumber(v)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatMoney groups thousands: 475000 -> "475,000", 1234.5 -> "1,234.50".
func formatMoney(v float64) string {
	if v == float64(int64(v)) {
		return printer.Sprintf("%d", int64(v))
	}
	return printer.Sprintf("%.2f", v)
}
