// Package i18n provides the static translation dictionary for API messages.
// Language is resolved per request; there is no process-wide language state.
package i18n

// Supported language codes. English is the fallback for unknown codes and
// missing keys.
const (
	LangEnglish = "en"
	LangDanish  = "dk"
	LangSpanish = "sp"

	DefaultLang = LangEnglish
)

var dictionary = map[string]map[string]string{
	"invalid_email": {
		LangEnglish: "Invalid email",
		LangDanish:  "Ugyldig e-mail",
		LangSpanish: "Correo electrónico inválido",
	},
	"invalid_password": {
		LangEnglish: "Invalid password",
		LangDanish:  "Ugyldig pinkode",
		LangSpanish: "Clave inválida",
	},
	"invalid_credentials": {
		LangEnglish: "Invalid credentials",
		LangDanish:  "Ugyldige loginoplysninger",
		LangSpanish: "Información incorrecta",
	},
	"user_not_found": {
		LangEnglish: "User not found",
		LangDanish:  "Bruger ikke fundet",
		LangSpanish: "Usuario no encontrado",
	},
	"user_not_verified": {
		LangEnglish: "User not verified. Please check your email",
		LangDanish:  "Bruger ikke verificeret. Tjek venligst din e-mail",
		LangSpanish: "Usuario no verificado. Por favor, chequéa tu email",
	},
	"email_not_verified": {
		LangEnglish: "Please verify your email address before logging in. Check your inbox for the verification link.",
		LangDanish:  "Bekræft venligst din e-mailadresse før du logger ind. Tjek din indbakke for bekræftelseslinket.",
		LangSpanish: "Por favor verifique su dirección de correo electrónico antes de iniciar sesión. Revise su bandeja de entrada para el enlace de verificación.",
	},
	"account_blocked": {
		LangEnglish: "Your account has been blocked. Contact support for details.",
		LangDanish:  "Din konto er blevet blokeret. Kontakt support for detaljer.",
		LangSpanish: "Tu cuenta ha sido bloqueada. Contacta con soporte para más detalles.",
	},
	"email_registered": {
		LangEnglish: "Email is already registered",
		LangDanish:  "E-mailen er allerede registreret",
		LangSpanish: "El correo electrónico ya está registrado",
	},
	"signup_success": {
		LangEnglish: "Account created. Check your inbox for the verification link.",
		LangDanish:  "Konto oprettet. Tjek din indbakke for bekræftelseslinket.",
		LangSpanish: "Cuenta creada. Revisa tu bandeja de entrada para el enlace de verificación.",
	},
	"email_verified": {
		LangEnglish: "Email verified. You can now log in.",
		LangDanish:  "E-mail bekræftet. Du kan nu logge ind.",
		LangSpanish: "Correo electrónico verificado. Ya puedes iniciar sesión.",
	},
	"invalid_link": {
		LangEnglish: "Invalid or expired link",
		LangDanish:  "Ugyldigt eller udløbet link",
		LangSpanish: "Enlace inválido o caducado",
	},
	"password_reset_sent": {
		LangEnglish: "If that email is registered you will receive a reset link shortly.",
		LangDanish:  "Hvis den e-mail er registreret, modtager du snart et nulstillingslink.",
		LangSpanish: "Si ese correo está registrado, recibirás un enlace de restablecimiento en breve.",
	},
	"password_updated": {
		LangEnglish: "Password updated",
		LangDanish:  "Adgangskode opdateret",
		LangSpanish: "Contraseña actualizada",
	},
	"email_change_sent": {
		LangEnglish: "Confirmation link sent to the new address.",
		LangDanish:  "Bekræftelseslink sendt til den nye adresse.",
		LangSpanish: "Enlace de confirmación enviado a la nueva dirección.",
	},
	"email_updated": {
		LangEnglish: "Email address updated",
		LangDanish:  "E-mailadresse opdateret",
		LangSpanish: "Dirección de correo electrónico actualizada",
	},
	"account_deleted": {
		LangEnglish: "Account deleted",
		LangDanish:  "Konto slettet",
		LangSpanish: "Cuenta eliminada",
	},
	"cannot_follow": {
		LangEnglish: "You cannot follow this user",
		LangDanish:  "Du kan ikke følge denne bruger",
		LangSpanish: "No puedes seguir a este usuario",
	},
	"post_not_found": {
		LangEnglish: "Post not found",
		LangDanish:  "Opslag ikke fundet",
		LangSpanish: "Publicación no encontrada",
	},
}

// Normalize returns a supported language code, falling back to English.
func Normalize(lang string) string {
	switch lang {
	case LangEnglish, LangDanish, LangSpanish:
		return lang
	default:
		return DefaultLang
	}
}

// T translates key into lang. Missing translations fall back to English and
// then to the key itself so a typo never produces an empty message.
func T(lang, key string) string {
	entry, ok := dictionary[key]
	if !ok {
		return key
	}
	if msg, ok := entry[Normalize(lang)]; ok && msg != "" {
		return msg
	}
	if msg, ok := entry[DefaultLang]; ok {
		return msg
	}
	return key
}

// Dict returns every known key translated into lang, for clients that want
// the whole bundle up front.
func Dict(lang string) map[string]string {
	lang = Normalize(lang)
	out := make(map[string]string, len(dictionary))
	for key := range dictionary {
		out[key] = T(lang, key)
	}
	return out
}
