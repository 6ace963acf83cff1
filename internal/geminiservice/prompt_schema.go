package geminiservice

/* =================================================================================
							GEMINI SCHEMA DEFINITION
	This is the core structure that tells Gemini how to format its JSON response
=================================================================================*/

// GeminiSchema defines the structure for "Controlled Generation" (Structured Output).
type GeminiSchema struct {
	// Type defines the data type (e.g., "OBJECT", "ARRAY", "STRING", "INTEGER").
	Type string `json:"type"`

	// Format specifies data format, primarily used for "enum" validation.
	Format string `json:"format,omitempty"`

	// Description explains the field's purpose to the AI.
	Description string `json:"description,omitempty"`

	// Properties maps field names to their child schemas (used when Type is "OBJECT").
	Properties map[string]*GeminiSchema `json:"properties,omitempty"`

	// Items defines the schema for elements within an array (used when Type is "ARRAY").
	Items *GeminiSchema `json:"items,omitempty"`

	// Required lists the field names that the AI MUST include in the response.
	Required []string `json:"required,omitempty"`

	// Enum lists valid specific string values for fields with restricted options.
	Enum []string `json:"enum,omitempty"`
}

/* =================================================================================
						PROMPT ENGINEERING & GUARDRAILS
=================================================================================*/

// SystemPrompt defines the coach persona and the output contract.
const SystemPrompt = `You are an expert AI fitness and nutrition coach. Your sole task is to generate a comprehensive 7-day fitness plan and diet plan based on the user's profile.

CRITICAL: Your entire response MUST be a single, valid JSON object that strictly adheres to the provided JSON schema. DO NOT include any text, markdown, or commentary outside of the JSON block.

PLAN REQUIREMENTS:
1. Workout Plan: Create 7 days of routines. For each daily workout, generate a concise, detailed Stable Image Core prompt (max 75 words) for the 'imageDescription' property.
2. Diet Plan: Create 7 days of meal breakdowns. For each daily diet plan, generate a concise, detailed Stable Image Core prompt (max 75 words) for the 'imageDescription' property.
3. Tips & Quote: Provide a specific motivational quote and three actionable tips.`

// UserPromptTemplate is filled with the profile fields in order:
// name, age, gender, height, weight, goal, level, location, diet, notes.
const UserPromptTemplate = `USER PROFILE:
- Name: %s, Age: %d, Gender: %s
- Body: %scm / %skg
- Primary Goal: %s
- Current Level: %s
- Location: %s (Design exercises for this location)
- Diet Preference: %s
- Medical/Notes: %s`

/*
PlanSchema describes the exact JSON structure the AI MUST output.
Field names match models.FitnessPlan.
*/
var PlanSchema = &GeminiSchema{
	Type: "OBJECT",
	Properties: map[string]*GeminiSchema{
		"motivationQuote": {Type: "STRING"},
		"aiTips": {
			Type:  "ARRAY",
			Items: &GeminiSchema{Type: "STRING"},
		},
		"workoutPlan": {
			Type: "ARRAY",
			Items: &GeminiSchema{
				Type: "OBJECT",
				Properties: map[string]*GeminiSchema{
					"day":   {Type: "STRING"},
					"focus": {Type: "STRING"},
					"exercises": {
						Type: "ARRAY",
						Items: &GeminiSchema{
							Type: "OBJECT",
							Properties: map[string]*GeminiSchema{
								"name": {Type: "STRING"},
								"sets": {Type: "INTEGER"},
								"reps": {Type: "STRING"},
								"rest": {Type: "STRING"},
							},
							Required: []string{"name", "sets", "reps", "rest"},
						},
					},
					"imageDescription": {
						Type:        "STRING",
						Description: "A concise, hyper-detailed, and visually descriptive Stable Image Core prompt (max 75 words) for a hero image representing this daily workout plan.",
					},
				},
				Required: []string{"day", "focus", "exercises", "imageDescription"},
			},
		},
		"dietPlan": {
			Type: "ARRAY",
			Items: &GeminiSchema{
				Type: "OBJECT",
				Properties: map[string]*GeminiSchema{
					"day": {Type: "STRING"},
					"meals": {
						Type: "ARRAY",
						Items: &GeminiSchema{
							Type: "OBJECT",
							Properties: map[string]*GeminiSchema{
								"name":        {Type: "STRING"},
								"type":        {Type: "STRING", Format: "enum", Enum: []string{"Breakfast", "Lunch", "Dinner", "Snack"}},
								"description": {Type: "STRING"},
							},
							Required: []string{"name", "type", "description"},
						},
					},
					"imageDescription": {
						Type:        "STRING",
						Description: "A concise, hyper-detailed, and visually descriptive Stable Image Core prompt (max 75 words) for a hero image representing this daily diet plan/main meal.",
					},
				},
				Required: []string{"day", "meals", "imageDescription"},
			},
		},
	},
	Required: []string{"motivationQuote", "aiTips", "workoutPlan", "dietPlan"},
}
