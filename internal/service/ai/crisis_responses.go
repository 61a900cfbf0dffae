package ai

import "github.com/sahara-labs/sahara/backend/internal/model/language"

// Canned safety replies. These never come from the model: the crisis path has
// to work with no provider configured and must not be rephrasable into
// something weaker.
var crisisReplies = map[string]string{
	"en": `I hear you, and I'm deeply concerned. You don't have to face this alone. Help is available right now.

🆘 Immediate Crisis Support (India):
• AASRA: 91-9820466726 (24/7)
• Vandrevala Foundation: 1860-2662-345 (24/7, Free)
• Kiran Helpline: 1800-599-0019 (24/7, Toll-free)
• iCall: 022-25521111 (Mon-Sat, 8 AM-10 PM)

🏥 Walk-in Support:
• NIMHANS Bangalore: 080-46110007
• Fortis Stress Helpline: 8376804102
• Visit the emergency ward of your nearest government hospital

Your life has value. These professionals understand what you're going through and want to help.`,

	"hi": `मैं आपकी बात सुन रहा हूं और मुझे आपकी बहुत चिंता है। आपको इसका सामना अकेले नहीं करना है। मदद अभी उपलब्ध है।

🆘 तुरंत संकट सहायता (भारत):
• आसरा (AASRA): 91-9820466726 (24/7)
• वंद्रेवाला फाउंडेशन: 1860-2662-345 (24/7, निःशुल्क)
• किरण हेल्पलाइन: 1800-599-0019 (24/7, टोल-फ्री)
• आईकॉल (iCall): 022-25521111 (सोम-शनि, 8 AM-10 PM)

🏥 अस्पताल सहायता:
• निमहंस बैंगलोर: 080-46110007
• फोर्टिस स्ट्रेस हेल्पलाइन: 8376804102
• नजदीकी सरकारी अस्पताल की इमरजेंसी में जाएं

आपका जीवन मूल्यवान है। ये पेशेवर आपकी स्थिति समझते हैं और मदद करना चाहते हैं।`,

	"es": `Me preocupa mucho lo que estás compartiendo. Por favor, sabe que no tienes que enfrentar esto en soledad.

Te animo a que contactes una línea de crisis de inmediato:
• AASRA (India): 91-9820466726 (24/7)
• Kiran Helpline (India): 1800-599-0019 (24/7, gratuita)
• Línea Nacional de Prevención del Suicidio: 988 (EE.UU.)

Estos servicios están disponibles todo el día. Tu vida importa y hay personas que quieren ayudarte.`,
}

// CrisisReply returns the fixed safety response for a detected crisis in the
// requested language, falling back to English for languages without a
// localized version.
func CrisisReply(lang string) string {
	if reply, ok := crisisReplies[language.Normalize(lang)]; ok {
		return reply
	}
	return crisisReplies[language.DefaultCode]
}
