package conversation

const (
	msgWelcomeTemplate = "Hola %s, Bienvenido a nuestro Servicio Odontológico Muelita online.¿En que puedo ayudarte hoy?"
	msgMenuPrompt      = "Elige una Opción"

	msgAskName     = "Por favor ingresa tu nombre y apellido:"
	msgAskReason   = "¿Cuál es el motivo de la Consulta?"
	msgAskQuestion = "Realiza tu consulta"
	msgLocation    = "Te esperamos en nuestra sucursal."
	msgEmergency   = "Si esto es una emergencia, te invitamos a llamar a nuestra linea de atención"
	msgThanks      = "¡Gracias por comunicarte con Doctor Muelita! Si necesitas algo más, escribe \"hola\" para ver el menú."
	msgUnknown     = "Lo siento, no entendí tu selección. Por favor, elige una de las opciones del menú."

	msgAppointmentSummary = "Gracias por agendar tu cita.\nResumen de tu cita:\n\nNombre: %s\nMotivo: %s\n\nNos pondremos en contacto contigo pronto para confirmar la fecha y hora de tu cita."

	msgFollowUpPrompt = "¿La respuesta fue de tu ayuda?"

	// DefaultAssistantFallback is sent when the assistant fails or returns nothing.
	DefaultAssistantFallback = "Lo siento, en este momento no puedo responder tu consulta. Por favor, inténtalo nuevamente en unos minutos o llama a nuestra linea de atención."

	msgSampleDocumentCaption = "¡Esto es un PDF!"
)

// Menu option ids carried by quick-reply buttons.
const (
	OptionSchedule   = "option_1"
	OptionConsult    = "option_2"
	OptionLocation   = "option_3"
	OptionThanks     = "option_4"
	OptionAskAnother = "option_5"
	OptionEmergency  = "option_6"
)

var welcomeMenu = []Button{
	{ID: OptionSchedule, Title: "Agendar"},
	{ID: OptionConsult, Title: "Consultar"},
	{ID: OptionLocation, Title: "Ubicación"},
}

var followUpMenu = []Button{
	{ID: OptionThanks, Title: "Si, Gracias"},
	{ID: OptionAskAnother, Title: "Hacer otra pregunta"},
	{ID: OptionEmergency, Title: "Emergencia"},
}
